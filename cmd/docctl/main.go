package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"live-docs/domain"
	"live-docs/repositories"
)

// docctl inspects a live-docs Badger database without going through the
// server. Handy to check what actually got persisted after a session.
func main() {
	dbPath := flag.String("db", "/tmp/live-docs/badger", "Path to badger DB")
	prefix := flag.String("prefix", "doc:", "Prefix to scan (doc: or user:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	switch *prefix {
	case "doc:":
		err = renderDocuments(db)
	case "user:":
		err = renderUsers(db)
	default:
		err = fmt.Errorf("unknown prefix %q (expected doc: or user:)", *prefix)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func renderDocuments(db *badger.DB) error {
	table := newTable([]string{"ID", "Title", "Language", "Size", "Updated"})

	count := 0
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte("doc:")
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var doc domain.Document
				if err := json.Unmarshal(v, &doc); err != nil {
					// Log and keep going, one bad record should not hide the rest
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				table.Append([]string{
					shortID(doc.ID),
					doc.Title,
					doc.Language,
					fmt.Sprintf("%d", len(doc.Content)),
					doc.UpdatedAt.Format("2006-01-02 15:04:05"),
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	color.Greenln(fmt.Sprintf("\n%d document(s)", count))
	return nil
}

func renderUsers(db *badger.DB) error {
	table := newTable([]string{"ID", "Email", "Username", "Created"})

	count := 0
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte("user:")
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var user repositories.User
				if err := json.Unmarshal(v, &user); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				table.Append([]string{
					shortID(user.ID),
					user.Email,
					user.Username,
					user.CreatedAt.Format("2006-01-02 15:04:05"),
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	color.Greenln(fmt.Sprintf("\n%d user(s)", count))
	return nil
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// shortID keeps the first 8 characters of a UUID for readability.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// If corruption is detected, open in write mode once to truncate
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
