package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/baechuer/roadside-admin/internal/domain"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	verifiedStyle = cellStyle.Foreground(lipgloss.Color("2"))
	rejectedStyle = cellStyle.Foreground(lipgloss.Color("1"))
	pendingStyle  = cellStyle.Foreground(lipgloss.Color("3"))
)

const statusColumn = 4

func statusStyle(s string) lipgloss.Style {
	switch domain.LicenseStatus(s) {
	case domain.LicenseVerified:
		return verifiedStyle
	case domain.LicenseRejected:
		return rejectedStyle
	default:
		return pendingStyle
	}
}

func writeUsers(w io.Writer, format string, users []domain.User) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(usersOrEmpty(users))
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.FullName,
			u.Email,
			u.VehicleDetails,
			string(u.LicenseStatus),
			u.RegistrationDate,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "EMAIL", "VEHICLE", "LICENSE", "REGISTERED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(rows) {
				return statusStyle(rows[row][col])
			}
			return cellStyle
		})

	_, err := fmt.Fprintf(w, "%s\n%d user(s)\n", t.Render(), len(users))
	return err
}

func writeLicense(w io.Writer, format, email string, status domain.LicenseStatus, images domain.LicenseImages) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Email  string               `json:"email"`
			Status domain.LicenseStatus `json:"status"`
			Images domain.LicenseImages `json:"images"`
		}{email, status, images})
	}

	fmt.Fprintf(w, "email:  %s\n", email)
	fmt.Fprintf(w, "status: %s\n", statusStyle(string(status)).UnsetPadding().Render(string(status)))
	fmt.Fprintf(w, "front:  %s\n", urlOrNone(images.Front))
	_, err := fmt.Fprintf(w, "back:   %s\n", urlOrNone(images.Back))
	return err
}

func urlOrNone(u *string) string {
	if u == nil {
		return "(none)"
	}
	return *u
}
