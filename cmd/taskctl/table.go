package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tasknotify/internal/domain"
)

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AlignHeader: text.AlignLeft}})
	return tw.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func resultRows(results []domain.DispatchResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "failed"
		if r.Succeeded {
			status = "sent"
		}
		rows = append(rows, []string{r.Recipient, status, r.DeliveryID, r.FailureReason})
	}
	return rows
}

func printResults(w io.Writer, results []domain.DispatchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No messages sent")
		return
	}
	fmt.Fprintln(w, renderTable([]string{"Recipient", "Status", "Delivery ID", "Failure"}, resultRows(results)))
	fmt.Fprintf(w, "%d of %d sent\n", domain.CountSucceeded(results), len(results))
}
