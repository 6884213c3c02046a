// fillstatus pings every address in a workbook's IP column and writes
// ALIVE/DEAD into a STATUS column, sheet by sheet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hamed0406/outagemon/internal/probe"
)

func main() {
	in := flag.String("in", "IP.xlsx", "input workbook")
	out := flag.String("out", "output.xlsx", "output workbook")
	workers := flag.Int("workers", 20, "concurrent pings")
	timeout := flag.Duration("timeout", time.Second, "per-ping timeout")
	flag.Parse()

	if err := run(*in, *out, *workers, *timeout); err != nil {
		log.Fatal(err)
	}
}

func run(in, out string, workers int, timeout time.Duration) error {
	f, err := excelize.OpenFile(in)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if workers < 1 {
		workers = 1
	}
	checker := probe.NewPinger(timeout)

	for _, sheet := range f.GetSheetList() {
		if err := fillSheet(f, sheet, checker, workers); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}

	if err := f.SaveAs(out); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	fmt.Printf("Updated workbook saved at: %s\n", out)
	return nil
}

// fillSheet pings the sheet's IP column with a bounded fan-out, then writes
// the results sequentially (the workbook is not safe for concurrent writes).
// Sheets without an IP column are left untouched.
func fillSheet(f *excelize.File, sheet string, checker probe.Checker, workers int) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	ipCol, statusCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "IP":
			ipCol = i
		case "STATUS":
			statusCol = i
		}
	}
	if ipCol < 0 {
		return nil
	}
	if statusCol < 0 {
		statusCol = len(rows[0])
		header, err := excelize.CoordinatesToCellName(statusCol+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, header, "STATUS"); err != nil {
			return err
		}
	}

	statuses := make([]string, len(rows))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) <= ipCol {
			continue
		}
		ip := strings.TrimSpace(row[ipCol])
		if ip == "" {
			continue
		}
		idx := i
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			if checker.Check(context.Background(), ip) {
				statuses[idx] = "ALIVE"
			} else {
				statuses[idx] = "DEAD"
			}
		}()
	}
	wg.Wait()

	for i, status := range statuses {
		if status == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(statusCol+1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, status); err != nil {
			return err
		}
	}
	return nil
}
