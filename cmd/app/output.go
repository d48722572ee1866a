package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"github.com/genomewalker/reviewflow-sub001/internal/lifecycle"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func defaultDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printPaperSummaries(items []domain.PaperSummary) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Title,
			fmt.Sprintf("%d/%d", item.CompletedComments, item.TotalComments),
			formatTime(item.UpdatedAt),
		})
	}
	printTable([]string{"ID", "TITLE", "PROGRESS", "UPDATED_AT"}, rows)
}

func printPaper(item domain.Paper) {
	printKV([][2]string{
		{"id", item.ID},
		{"title", item.Title},
		{"authors", item.Authors},
		{"journal", item.Journal},
		{"field", item.Field},
		{"status", item.Status},
		{"submitted", defaultDash(item.SubmissionDate)},
		{"reviewed", defaultDash(item.ReviewDate)},
		{"created_at", formatTime(item.CreatedAt)},
		{"updated_at", formatTime(item.UpdatedAt)},
	})
}

func printSettings(items []domain.Setting) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.Key,
			string(item.Value),
			formatTime(item.UpdatedAt),
		})
	}
	printTable([]string{"KEY", "VALUE", "UPDATED_AT"}, rows)
}

func printChat(items []domain.ChatEntry) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			formatTime(item.Timestamp),
			item.Role,
			defaultDash(item.CommentID),
			item.Content,
		})
	}
	printTable([]string{"ID", "AT", "ROLE", "COMMENT", "CONTENT"}, rows)
}

func printServerStatus(st lifecycle.Status) {
	rows := [][2]string{
		{"running", strconv.FormatBool(st.Running)},
		{"url", st.URL},
	}
	if st.DB != nil {
		rows = append(rows,
			[2]string{"papers", strconv.FormatInt(st.DB.Papers, 10)},
			[2]string{"comments", strconv.FormatInt(st.DB.Comments, 10)},
			[2]string{"database", st.DB.Database},
		)
	}
	printKV(rows)
}
