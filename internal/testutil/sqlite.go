package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// ProductDictionaryYAML describes the Product table seeded by SeedProducts,
// a browser container over its active rows and a search reference on it.
const ProductDictionaryYAML = `
tables:
  - name: Product
    columns:
      - {name: ID, type: id, key: true}
      - {name: Name, type: string, searchable: true, identifier: true}
      - {name: IsActive, type: yes_no}
      - {name: AD_Client_ID, type: integer}
validation_rules:
  - {id: ClientProducts, code: "Product.AD_Client_ID=@#AD_Client_ID@"}
  - {id: EmptyRule, code: "@Blank:@"}
references:
  - id: Product
    kind: search
    table: Product
    key_column: ID
    display_column: Name
    where: "Product.IsActive='Y'"
  - id: ClientProduct
    kind: table
    table: Product
    key_column: ID
    display_column: Name
    validation_rule: ClientProducts
  - id: BlankRuleProduct
    kind: table
    table: Product
    key_column: ID
    validation_rule: EmptyRule
containers:
  - id: products
    name: Products
    kind: browser
    table: Product
    where: "Product.IsActive='Y'"
    fields:
      - {id: f-name, name: Name, column: Name}
`

// OpenSQLite opens a private in-memory SQLite database closed at test cleanup
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedProducts creates the Product table with 25 active widgets, 5 inactive
// widgets and 7 active gadgets. Widgets of client 11 are the odd-numbered ones.
func SeedProducts(t testing.TB, db *sql.DB) {
	t.Helper()
	exec := func(query string, args ...interface{}) {
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	exec(`CREATE TABLE Product (
		ID INTEGER PRIMARY KEY,
		Name TEXT NOT NULL,
		IsActive TEXT NOT NULL,
		AD_Client_ID INTEGER NOT NULL
	)`)

	id := 1
	for i := 1; i <= 25; i++ {
		client := 12
		if i%2 == 1 {
			client = 11
		}
		exec("INSERT INTO Product (ID, Name, IsActive, AD_Client_ID) VALUES (?, ?, 'Y', ?)", id, fmt.Sprintf("Widget %02d", i), client)
		id++
	}
	for i := 1; i <= 5; i++ {
		exec("INSERT INTO Product (ID, Name, IsActive, AD_Client_ID) VALUES (?, ?, 'N', 11)", id, fmt.Sprintf("Old widget %d", i))
		id++
	}
	for i := 1; i <= 7; i++ {
		exec("INSERT INTO Product (ID, Name, IsActive, AD_Client_ID) VALUES (?, ?, 'Y', 11)", id, fmt.Sprintf("Gadget %d", i))
		id++
	}
}
