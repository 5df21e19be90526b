// Package ledger is the durable card->points table. Single sheet, header
// row CardID|Points|LastUpdated, one data row per card. Files written by
// earlier fixed-capacity builds stay readable: lookups skip blank filler
// rows and new records land in the first such hole.
package ledger

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/xuri/excelize/v2"

	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

const SheetName = "ledger"

const headerRow = 1

var header = []interface{}{"CardID", "Points", "LastUpdated"}

const timestampLayout = time.RFC3339

type Ledger struct {
	path string
	file *excelize.File
	log  *log2.Log
}

// OpenOrCreate opens the backing file, creating it with just the header
// row when absent. Unreadable existing file is a StorageError.
func OpenOrCreate(path string, log *log2.Log) (*Ledger, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Trace(types.StorageError{Err: err})
		}
		return create(path, log)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Trace(types.StorageError{Err: errors.Annotatef(err, "open path=%s", path)})
	}
	if idx, err := f.GetSheetIndex(SheetName); err != nil || idx < 0 {
		_ = f.Close()
		return nil, errors.Trace(types.StorageError{Err: errors.Errorf("no sheet=%s path=%s", SheetName, path)})
	}
	l := &Ledger{path: path, file: f, log: log}
	l.log.Debugf("ledger open path=%s", path)
	return l, nil
}

func create(path string, log *log2.Log) (*Ledger, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, errors.Trace(types.StorageError{Err: err})
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, errors.Trace(types.StorageError{Err: err})
	}
	if err := f.SaveAs(path); err != nil {
		return nil, errors.Trace(types.StorageError{Err: errors.Annotatef(err, "create path=%s", path)})
	}
	log.Infof("ledger created path=%s", path)
	return &Ledger{path: path, file: f, log: log}, nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Close() error {
	return errors.Trace(l.file.Close())
}

// Find scans data rows top to bottom for the first trimmed-exact match.
// found=false is distinct from points=0.
func (l *Ledger) Find(cardID string) (points int, found bool, err error) {
	query := strings.TrimSpace(cardID)
	rows, err := l.file.GetRows(SheetName)
	if err != nil {
		return 0, false, errors.Trace(types.StorageError{Err: err})
	}
	for i, row := range rows {
		if i+1 == headerRow {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) != query {
			continue
		}
		p := 0
		if len(row) > 1 {
			p, err = strconv.Atoi(strings.TrimSpace(row[1]))
			if err != nil {
				return 0, false, errors.Trace(types.StorageError{Err: errors.Annotatef(err, "row=%d card=%s points malformed", i+1, query)})
			}
		}
		return p, true, nil
	}
	return 0, false, nil
}

// Upsert overwrites the matching row in place, or fills the first hole
// past the header. Ends with a full synchronous save.
func (l *Ledger) Upsert(cardID string, points int) error {
	if points < 0 {
		return errors.Errorf("code error ledger.Upsert points=%d < 0", points)
	}
	id := strings.TrimSpace(cardID)
	if id == "" {
		return errors.Errorf("code error ledger.Upsert empty card")
	}

	rows, err := l.file.GetRows(SheetName)
	if err != nil {
		return errors.Trace(types.StorageError{Err: err})
	}
	target := 0
	for i, row := range rows {
		if i+1 == headerRow {
			continue
		}
		if len(row) > 0 && strings.TrimSpace(row[0]) == id {
			target = i + 1
			break
		}
		if target == 0 && (len(row) == 0 || strings.TrimSpace(row[0]) == "") {
			target = i + 1
		}
	}
	if target == 0 {
		target = len(rows) + 1
	}

	record := []interface{}{id, points, time.Now().Format(timestampLayout)}
	if err = l.file.SetSheetRow(SheetName, fmt.Sprintf("A%d", target), &record); err != nil {
		return errors.Trace(types.StorageError{Err: err})
	}
	if err = l.file.Save(); err != nil {
		return errors.Trace(types.StorageError{Err: errors.Annotatef(err, "save path=%s", l.path)})
	}
	l.log.Debugf("ledger upsert card=%s points=%d row=%d", id, points, target)
	return nil
}

// All returns (cardID, points) pairs in row order, skipping holes.
// Used by ledger-cli, not by the session loop.
func (l *Ledger) All() ([][2]string, error) {
	rows, err := l.file.GetRows(SheetName)
	if err != nil {
		return nil, errors.Trace(types.StorageError{Err: err})
	}
	out := make([][2]string, 0, len(rows))
	for i, row := range rows {
		if i+1 == headerRow || len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		p := ""
		if len(row) > 1 {
			p = strings.TrimSpace(row[1])
		}
		out = append(out, [2]string{strings.TrimSpace(row[0]), p})
	}
	return out, nil
}
