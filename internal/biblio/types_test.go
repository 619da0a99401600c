package biblio

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"lliure", StatusFree, false},
		{" PRESTAT ", StatusLoaned, false},
		{"reservat", StatusReserved, false},
		{"perdut", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoanDecodesNullReturnDateAsActive(t *testing.T) {
	var loan Loan
	raw := `{"id":4,"dataPrestec":"2024-01-10","dataDevolucio":null,"usuari":{"id":2,"nick":"anna","admin":false},"exemplar":{"id":7,"lloc":"B2","reservat":"prestat"}}`
	if err := json.Unmarshal([]byte(raw), &loan); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !loan.Active() {
		t.Fatalf("loan should be active")
	}
	if loan.UserID() != 2 || loan.ExemplarID() != 7 {
		t.Fatalf("UserID/ExemplarID = %d/%d, want 2/7", loan.UserID(), loan.ExemplarID())
	}
	if loan.Exemplar.Status != StatusLoaned {
		t.Fatalf("exemplar status = %q, want prestat", loan.Exemplar.Status)
	}

	var empty Loan
	if empty.UserID() != 0 || empty.ExemplarID() != 0 {
		t.Fatalf("zero loan should report zero ids")
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.February || got.Day() != 29 {
		t.Fatalf("ParseDate = %v", got)
	}
	if _, err := ParseDate("2024-02-29T10:00:00Z"); err != nil {
		t.Fatalf("ParseDate RFC3339 returned error: %v", err)
	}
	for _, bad := range []string{"", "ahir", "29/02/2024"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("ParseDate(%q) returned nil error", bad)
		}
	}
	if FormatDate(got) != "2024-02-29" {
		t.Fatalf("FormatDate = %q", FormatDate(got))
	}
}

func TestUserFullName(t *testing.T) {
	u := User{Name: "Joan", Surname1: " Fuster ", Surname2: ""}
	if got := u.FullName(); got != "Joan Fuster" {
		t.Fatalf("FullName = %q, want %q", got, "Joan Fuster")
	}
}
