package devserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/five82/lector/internal/biblio"
)

// ---- users ----

func (s *Server) listUsers(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.store.listUsers())
}

func (s *Server) getUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if !ctx.GetBool(ctxAdmin) && ctx.GetInt64(ctxUserID) != id {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Només pots consultar el teu perfil"})
		return
	}
	user, err := s.store.user(id)
	if err != nil {
		writeError(ctx, err, "Usuari no trobat")
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func (s *Server) getUserByNif(ctx *gin.Context) {
	user, err := s.store.userByNif(ctx.Param("nif"))
	if err != nil {
		writeError(ctx, err, "Usuari no trobat")
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func (s *Server) createUser(ctx *gin.Context) {
	var req biblio.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Nick = strings.TrimSpace(req.Nick)
	if req.Nick == "" || req.Password == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "El nick i la contrasenya són obligatoris"})
		return
	}
	user, err := s.store.createUser(req.User, req.Password)
	if err != nil {
		writeError(ctx, err, "Usuari no trobat")
		return
	}
	ctx.JSON(http.StatusCreated, user)
}

func (s *Server) updateUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	admin := ctx.GetBool(ctxAdmin)
	if !admin && ctx.GetInt64(ctxUserID) != id {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Només pots modificar el teu perfil"})
		return
	}
	var req biblio.UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Admin != nil && !admin {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "No pots canviar el teu rol"})
		return
	}
	if req.Nick != nil && strings.TrimSpace(*req.Nick) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "El nick no pot ser buit"})
		return
	}
	if req.Password != nil && *req.Password == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "La contrasenya no pot ser buida"})
		return
	}
	user, err := s.store.updateUser(id, req)
	if err != nil {
		writeError(ctx, err, "Usuari no trobat")
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func (s *Server) deleteUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if ctx.GetInt64(ctxUserID) == id {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "No pots eliminar el teu propi usuari"})
		return
	}
	if err := s.store.deleteUser(id); err != nil {
		writeError(ctx, err, "Usuari no trobat")
		return
	}
	deleted(ctx, "Usuari")
}

// ---- authors and books ----

func (s *Server) listAuthors(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.store.listAuthors())
}

func (s *Server) saveAuthor(ctx *gin.Context) {
	var id int64
	if ctx.Param("id") != "" {
		var ok bool
		if id, ok = paramID(ctx, "id"); !ok {
			return
		}
	}
	var req biblio.AuthorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "El nom és obligatori"})
		return
	}
	author, err := s.store.saveAuthor(id, req)
	if err != nil {
		writeError(ctx, err, "Autor no trobat")
		return
	}
	ctx.JSON(createdOrOK(id), author)
}

func (s *Server) deleteAuthor(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.store.deleteAuthor(id); err != nil {
		writeError(ctx, err, "Autor no trobat")
		return
	}
	deleted(ctx, "Autor")
}

func (s *Server) listBooks(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.store.listBooks())
}

func (s *Server) saveBook(ctx *gin.Context) {
	var id int64
	if ctx.Param("id") != "" {
		var ok bool
		if id, ok = paramID(ctx, "id"); !ok {
			return
		}
	}
	var req biblio.BookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "El títol és obligatori"})
		return
	}
	book, err := s.store.saveBook(id, req)
	if err != nil {
		writeError(ctx, err, "Llibre o autor no trobat")
		return
	}
	ctx.JSON(createdOrOK(id), book)
}

func (s *Server) deleteBook(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.store.deleteBook(id); err != nil {
		writeError(ctx, err, "Llibre no trobat")
		return
	}
	deleted(ctx, "Llibre")
}

// ---- exemplars ----

func (s *Server) listExemplars(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.store.listExemplars(nil))
}

func (s *Server) searchFree(ctx *gin.Context) {
	title := strings.ToLower(strings.TrimSpace(ctx.Query("titol")))
	author := strings.ToLower(strings.TrimSpace(ctx.Query("autor")))
	ctx.JSON(http.StatusOK, s.store.listExemplars(func(ex biblio.Exemplar) bool {
		if ex.Status != biblio.StatusFree {
			return false
		}
		if title != "" && !strings.Contains(strings.ToLower(ex.Title()), title) {
			return false
		}
		if author != "" {
			if ex.Book == nil || !strings.Contains(strings.ToLower(ex.Book.AuthorName()), author) {
				return false
			}
		}
		return true
	}))
}

func (s *Server) getExemplar(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	ex, err := s.store.exemplar(id)
	if err != nil {
		writeError(ctx, err, "Exemplar no trobat")
		return
	}
	ctx.JSON(http.StatusOK, ex)
}

func (s *Server) saveExemplar(ctx *gin.Context) {
	var id int64
	if ctx.Param("id") != "" {
		var ok bool
		if id, ok = paramID(ctx, "id"); !ok {
			return
		}
	}
	var req biblio.ExemplarRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Estat invàlid: " + string(req.Status)})
		return
	}
	if id == 0 && req.BookID == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Cal indicar el llibre"})
		return
	}
	ex, err := s.store.saveExemplar(id, req)
	if err != nil {
		writeError(ctx, err, "Exemplar o llibre no trobat")
		return
	}
	ctx.JSON(createdOrOK(id), ex)
}

func (s *Server) deleteExemplar(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.store.deleteExemplar(id); err != nil {
		writeError(ctx, err, "Exemplar no trobat")
		return
	}
	deleted(ctx, "Exemplar")
}

// ---- loans ----

func (s *Server) listLoans(activeOnly bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, ok := queryUserID(ctx)
		if !ok {
			return
		}
		if !ctx.GetBool(ctxAdmin) {
			self := ctx.GetInt64(ctxUserID)
			if userID != 0 && userID != self {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "Només pots consultar els teus préstecs"})
				return
			}
			userID = self
		}
		ctx.JSON(http.StatusOK, s.store.listLoans(userID, activeOnly))
	}
}

func (s *Server) createLoan(ctx *gin.Context) {
	var req biblio.CreateLoanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID <= 0 || req.ExemplarID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Cal indicar usuari i exemplar"})
		return
	}
	if req.LoanDate != "" {
		if _, err := biblio.ParseDate(req.LoanDate); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Data de préstec invàlida"})
			return
		}
	}
	loan, err := s.store.createLoan(req)
	if err != nil {
		writeError(ctx, err, "Usuari o exemplar no trobat")
		return
	}
	ctx.JSON(http.StatusCreated, loan)
}

func (s *Server) returnLoan(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.store.returnLoan(id, ctx.GetInt64(ctxUserID), ctx.GetBool(ctxAdmin)); err != nil {
		writeError(ctx, err, "Préstec no trobat")
		return
	}
	ctx.JSON(http.StatusOK, biblio.MessageResponse{Message: "Préstec retornat correctament"})
}

// ---- groups and schedules ----

func (s *Server) listGroups(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.store.listGroups())
}

func (s *Server) createGroup(ctx *gin.Context) {
	var req biblio.GroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "El nom és obligatori"})
		return
	}
	group, err := s.store.createGroup(req)
	if err != nil {
		writeError(ctx, err, "Moderador o horari no trobat")
		return
	}
	ctx.JSON(http.StatusCreated, group)
}

func (s *Server) deleteGroup(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := s.store.deleteGroup(id); err != nil {
		writeError(ctx, err, "Grup no trobat")
		return
	}
	deleted(ctx, "Grup")
}

func (s *Server) listMembers(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	members, err := s.store.members(id)
	if err != nil {
		writeError(ctx, err, "Grup no trobat")
		return
	}
	ctx.JSON(http.StatusOK, members)
}

// setMember lets admins manage any membership and users join or leave themselves.
func (s *Server) setMember(member bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		groupID, ok := paramID(ctx, "id")
		if !ok {
			return
		}
		userID, ok := paramID(ctx, "userId")
		if !ok {
			return
		}
		if !ctx.GetBool(ctxAdmin) && ctx.GetInt64(ctxUserID) != userID {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "Cal ser administrador"})
			return
		}
		if err := s.store.setMember(groupID, userID, member); err != nil {
			writeError(ctx, err, "Grup o usuari no trobat")
			return
		}
		msg := "Membre afegit"
		if !member {
			msg = "Membre eliminat"
		}
		ctx.JSON(http.StatusOK, biblio.MessageResponse{Message: msg})
	}
}

func (s *Server) listSchedules(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.store.listSchedules())
}

func (s *Server) createSchedule(ctx *gin.Context) {
	var req biblio.ScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Room == "" || req.Day == "" || req.Hour == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Sala, dia i hora són obligatoris"})
		return
	}
	schedule, err := s.store.createSchedule(req)
	if err != nil {
		writeError(ctx, err, "Horari no trobat")
		return
	}
	ctx.JSON(http.StatusCreated, schedule)
}

func createdOrOK(id int64) int {
	if id == 0 {
		return http.StatusCreated
	}
	return http.StatusOK
}
