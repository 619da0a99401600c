package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/result"
)

func newExemplarsCmd(g *globals) *cobra.Command {
	var (
		free   bool
		title  string
		author string
	)
	cmd := &cobra.Command{
		Use:   "exemplars",
		Short: "List exemplars, or search the free ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, done, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			var res result.Result[[]biblio.Exemplar]
			if free || title != "" || author != "" {
				res = env.Models.Catalog.SearchFree(cmd.Context(), title, author)
			} else {
				res = env.Models.Catalog.LoadExemplars(cmd.Context())
			}
			if res.IsFailed() {
				return errors.New(res.Message())
			}
			printExemplars(cmd.OutOrStdout(), res.Value)
			return nil
		},
	}
	cmd.Flags().BoolVar(&free, "free", false, "only exemplars that are lliure")
	cmd.Flags().StringVar(&title, "title", "", "title fragment (implies --free)")
	cmd.Flags().StringVar(&author, "author", "", "author fragment (implies --free)")
	return cmd
}

func newLoansCmd(g *globals) *cobra.Command {
	var (
		userID int64
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List active loans, or the whole history with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, done, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			var res result.Result[[]biblio.Loan]
			if all {
				res = env.Models.Loans.LoadAll(cmd.Context(), userID)
			} else {
				res = env.Models.Loans.LoadActive(cmd.Context(), userID)
			}
			if res.IsFailed() {
				return errors.New(res.Message())
			}
			printLoans(cmd.OutOrStdout(), res.Value, env.Models.Loans.DaysOut)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "only loans of this user id")
	cmd.Flags().BoolVar(&all, "all", false, "include returned loans")
	return cmd
}

func newLendCmd(g *globals) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "lend <exemplar> <user>",
		Short: "Lend an exemplar to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exemplarID, err := parseID("exemplar", args[0])
			if err != nil {
				return err
			}
			userID, err := parseID("user", args[1])
			if err != nil {
				return err
			}
			env, done, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			res, err := env.Models.Loans.Create(cmd.Context(), userID, exemplarID, date)
			if err != nil {
				return err
			}
			if res.IsFailed() {
				return errors.New(res.Message())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Préstec %d creat: exemplar %d, usuari %d, %s\n",
				res.Value.ID, exemplarID, userID, res.Value.LoanDate)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "loan date YYYY-MM-DD (default today)")
	return cmd
}

func newReturnCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan>",
		Short: "Return a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID("loan", args[0])
			if err != nil {
				return err
			}
			env, done, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			res, err := env.Models.Loans.Return(cmd.Context(), loanID)
			if err != nil {
				return err
			}
			if res.IsFailed() {
				return errors.New(res.Message())
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Value)
			return nil
		},
	}
}

func newStatusCmd(g *globals) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "status <exemplar> <lliure|prestat|reservat>",
		Short: "Change the status of an exemplar, lending or returning as needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exemplarID, err := parseID("exemplar", args[0])
			if err != nil {
				return err
			}
			target, err := biblio.ParseStatus(args[1])
			if err != nil {
				return err
			}
			env, done, err := g.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			current := env.Models.Catalog.GetExemplar(cmd.Context(), exemplarID)
			if current.IsFailed() {
				return errors.New(current.Message())
			}
			res, err := env.Models.Catalog.ChangeStatus(cmd.Context(), current.Value, target, userID)
			if err != nil {
				return err
			}
			if res.IsFailed() {
				return fmt.Errorf("%s (pas: %s)", res.Message(), res.Value.Step)
			}
			change := res.Value
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exemplar %d: %s -> %s\n", exemplarID, current.Value.Status, change.Exemplar.Status)
			if change.Returned != nil {
				fmt.Fprintf(out, "Préstec %d retornat\n", change.Returned.ID)
			}
			if change.Created != nil {
				fmt.Fprintf(out, "Préstec %d creat\n", change.Created.ID)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id when lending or reserving")
	return cmd
}

// Output

func newTable(headers ...string) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func printExemplars(w io.Writer, items []biblio.Exemplar) {
	t := newTable("ID", "Títol", "Autor", "Lloc", "Estat")
	for _, ex := range items {
		author := ""
		if ex.Book != nil {
			author = ex.Book.AuthorName()
		}
		t.Row(strconv.FormatInt(ex.ID, 10), ex.Title(), author, ex.Location, string(ex.Status))
	}
	fmt.Fprintln(w, t.Render())
}

func printLoans(w io.Writer, items []biblio.Loan, days func(biblio.Loan) int) {
	t := newTable("ID", "Exemplar", "Usuari", "Préstec", "Retorn", "Dies")
	for _, loan := range items {
		exemplar, user := "", ""
		if loan.Exemplar != nil {
			exemplar = fmt.Sprintf("#%d %s", loan.Exemplar.ID, loan.Exemplar.Title())
		}
		if loan.User != nil {
			user = loan.User.Nick
		}
		returned, out := "-", strconv.Itoa(days(loan))
		if loan.ReturnDate != nil {
			returned, out = *loan.ReturnDate, ""
		}
		t.Row(strconv.FormatInt(loan.ID, 10), exemplar, user, loan.LoanDate, returned, out)
	}
	fmt.Fprintln(w, t.Render())
}
