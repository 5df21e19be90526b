// Maintenance shell for the points ledger. Useful on a kiosk over ssh:
// inspect a card's balance, fix it after a hardware incident, dump all rows.
package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"

	"github.com/ahmadadeltub/green-smart-pedal/helpers/cli"
	"github.com/ahmadadeltub/green-smart-pedal/internal/ledger"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

const usage = `commands:
find <card>          show points for card
set <card> <points>  write points for card
list                 dump all rows
path                 show ledger file path
help`

var store *ledger.Ledger

func main() {
	flagLedger := flag.String("ledger", "./green-points.xlsx", "ledger file path")
	flag.Parse()

	log := log2.NewStderr(log2.LDebug)
	log.SetFlags(log2.LInteractiveFlags)

	var err error
	store, err = ledger.OpenOrCreate(*flagLedger, log)
	if err != nil {
		log.Fatal(errors.Annotate(err, "ledger open"))
	}
	defer store.Close()

	cli.MainLoop("ledger-cli", execLine, newCompleter())
}

func execLine(line string) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}
	switch words[0] {
	case "find":
		if len(words) != 2 {
			fmt.Println("usage: find <card>")
			return
		}
		points, found, err := store.Find(words[1])
		if err != nil {
			fmt.Println(errors.ErrorStack(err))
			return
		}
		if !found {
			fmt.Printf("card=%s not in ledger\n", words[1])
			return
		}
		fmt.Printf("card=%s points=%d\n", words[1], points)

	case "set":
		if len(words) != 3 {
			fmt.Println("usage: set <card> <points>")
			return
		}
		points, err := strconv.Atoi(words[2])
		if err != nil || points < 0 {
			fmt.Println("points must be a non-negative integer")
			return
		}
		if err := store.Upsert(words[1], points); err != nil {
			fmt.Println(errors.ErrorStack(err))
			return
		}
		fmt.Printf("card=%s points=%d saved\n", words[1], points)

	case "list":
		rows, err := store.All()
		if err != nil {
			fmt.Println(errors.ErrorStack(err))
			return
		}
		for _, row := range rows {
			fmt.Printf("%s\t%s\n", row[0], row[1])
		}
		fmt.Printf("total rows=%d\n", len(rows))

	case "path":
		fmt.Println(store.Path())

	case "help":
		fmt.Println(usage)

	default:
		fmt.Printf("unknown command %q\n%s\n", words[0], usage)
	}
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "find", Description: "show points for card"},
		{Text: "set", Description: "write points for card"},
		{Text: "list", Description: "dump all rows"},
		{Text: "path", Description: "show ledger file path"},
		{Text: "help"},
	}
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
	}
}
