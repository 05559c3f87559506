package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/flintdb"
)

const customerDDL = `CREATE TABLE customer (
  id INT64 NOT NULL,
  name STRING(50) NOT NULL,
  age INT32 NOT NULL DEFAULT 0,
  PRIMARY KEY (id)
)`

func setupTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	var buf bytes.Buffer
	cli := newCLI(&buf, t.TempDir())
	t.Cleanup(func() {
		cli.closeCurrent()
		flintdb.Cleanup()
	})
	return cli, &buf
}

func TestCLICreateTableAndInsert(t *testing.T) {
	cli, buf := setupTestCLI(t)

	if err := cli.execute(customerDDL); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if cli.table == nil {
		t.Fatal("Expected the created table to be open")
	}
	if want := filepath.Join(cli.baseDir, "customer.flintdb"); cli.current != want {
		t.Errorf("Expected current %s, got %s", want, cli.current)
	}

	for _, stmt := range []string{
		"INSERT INTO customer VALUES (1, 'Customer 1', 30)",
		"INSERT INTO customer VALUES (2, 'Customer, 2', 31)",
	} {
		if err := cli.execute(stmt); err != nil {
			t.Fatalf("INSERT failed: %v", err)
		}
	}

	rows, err := cli.table.Rows()
	if err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if rows != 2 {
		t.Errorf("Expected 2 rows, got %d", rows)
	}

	buf.Reset()
	cli.find("WHERE age >= 31")
	out := buf.String()
	if !strings.Contains(out, "Customer, 2") || strings.Contains(out, "Customer 1") {
		t.Errorf("Expected only Customer, 2 in find output, got %q", out)
	}
	if !strings.Contains(out, "(1 rows)") {
		t.Errorf("Expected row count in find output, got %q", out)
	}
}

func TestCLIInsertErrors(t *testing.T) {
	cli, _ := setupTestCLI(t)

	if err := cli.execute("INSERT INTO customer VALUES (1)"); err == nil {
		t.Error("Expected error without an open table")
	}
	if err := cli.execute(customerDDL); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if err := cli.execute("INSERT INTO customer VALUES (1, 'x')"); err == nil {
		t.Error("Expected error for missing values")
	}
	if err := cli.execute("INSERT INTO customer VALUES (x, 'x', 1)"); err == nil {
		t.Error("Expected error for a non-numeric id")
	}
	if err := cli.execute("SELECT * FROM customer"); err == nil {
		t.Error("Expected error for unsupported statement")
	}
}

func TestCLIMemoryTable(t *testing.T) {
	var buf bytes.Buffer
	cli := newCLI(&buf, "")
	t.Cleanup(func() {
		cli.closeCurrent()
		flintdb.Cleanup()
	})

	if err := cli.execute(customerDDL); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if cli.current != "customer" {
		t.Errorf("Expected memory table named customer, got %s", cli.current)
	}
	if err := cli.execute("INSERT INTO customer VALUES (1, 'Customer 1', 30)"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}

	buf.Reset()
	cli.showSchema()
	if !strings.Contains(buf.String(), "STORAGE=memory") {
		t.Errorf("Expected memory storage in schema, got %q", buf.String())
	}

	if err := cli.drop("customer"); err != nil {
		t.Fatalf("Failed to drop memory table: %v", err)
	}
	if cli.current != "" {
		t.Error("Expected dropping the open table to close it")
	}
	if err := cli.openTable("customer", flintdb.ReadOnly, nil); err == nil {
		t.Error("Expected dropped memory table to be gone")
	}
}

func TestCLIOpenAndClose(t *testing.T) {
	cli, buf := setupTestCLI(t)

	if err := cli.execute(customerDDL); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if err := cli.execute("INSERT INTO customer VALUES (1, 'Customer 1', 30)"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	name := cli.current

	cli.handleCommand(".close")
	if cli.table != nil || cli.current != "" {
		t.Fatal("Expected .close to close the table")
	}

	buf.Reset()
	cli.handleCommand(".open " + name)
	if cli.table == nil {
		t.Fatalf("Expected .open to reopen the table, got %q", buf.String())
	}

	buf.Reset()
	cli.handleCommand(".read 1")
	if !strings.Contains(buf.String(), "Customer 1") {
		t.Errorf("Expected row 1 in output, got %q", buf.String())
	}

	buf.Reset()
	cli.handleCommand(".delete 1")
	if !strings.Contains(buf.String(), "Error") {
		t.Errorf("Expected delete on read-only table to fail, got %q", buf.String())
	}

	buf.Reset()
	cli.handleCommand(".rows")
	if !strings.Contains(buf.String(), "1 rows") {
		t.Errorf("Expected 1 rows, got %q", buf.String())
	}
}

func TestCLIRestore(t *testing.T) {
	cli, buf := setupTestCLI(t)

	if err := cli.execute(customerDDL); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if err := cli.execute("INSERT INTO customer VALUES (1, 'Customer 1', 30)"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	commits, err := cli.table.History(1)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if err := cli.execute("INSERT INTO customer VALUES (2, 'Customer 2', 31)"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}

	buf.Reset()
	cli.handleCommand(".restore " + commits[0].Id[:7])
	if !strings.Contains(buf.String(), "Restored") {
		t.Fatalf("Expected restore to succeed, got %q", buf.String())
	}
	if rows, _ := cli.table.Rows(); rows != 1 {
		t.Errorf("Expected 1 row after restore, got %d", rows)
	}

	buf.Reset()
	cli.handleCommand(".restore zzzzzzz")
	if !strings.Contains(buf.String(), "no commit matches") {
		t.Errorf("Expected unknown commit error, got %q", buf.String())
	}

	buf.Reset()
	cli.handleCommand(".restore")
	if !strings.Contains(buf.String(), "Usage") {
		t.Errorf("Expected usage message, got %q", buf.String())
	}
}

func TestCLIGenericFile(t *testing.T) {
	cli, buf := setupTestCLI(t)

	name := filepath.Join(t.TempDir(), "products.tsv")
	content := "product_id\tproduct_name\tprice\n101\tProduct-A\t9.99\n102\tProduct-B\t19.98\n"
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	cli.handleCommand(".file " + name)
	if cli.file == nil {
		t.Fatalf("Expected .file to open the file, got %q", buf.String())
	}

	buf.Reset()
	cli.handleCommand(".find WHERE product_id >= 102")
	out := buf.String()
	if !strings.Contains(out, "Product-B") || strings.Contains(out, "Product-A") {
		t.Errorf("Expected only Product-B, got %q", out)
	}

	buf.Reset()
	cli.handleCommand(".read 1")
	if !strings.Contains(buf.String(), "no table is open") {
		t.Errorf("Expected .read to need a table, got %q", buf.String())
	}

	if err := cli.drop(name); err != nil {
		t.Fatalf("Failed to drop file: %v", err)
	}
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Errorf("Expected file to be removed, got %v", err)
	}
}

func TestCLIRun(t *testing.T) {
	cli, buf := setupTestCLI(t)

	input := strings.Join([]string{
		"CREATE TABLE customer (",
		"  id INT64 NOT NULL,",
		"  name STRING(50) NOT NULL,",
		"  PRIMARY KEY (id)",
		");",
		"INSERT INTO customer VALUES (7, 'Seven');",
		".find",
		".quit",
	}, "\n") + "\n"
	cli.run(strings.NewReader(input))

	out := buf.String()
	if !strings.Contains(out, "Created") {
		t.Errorf("Expected table creation in output, got %q", out)
	}
	if !strings.Contains(out, "Seven") {
		t.Errorf("Expected inserted row in output, got %q", out)
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Errorf("Expected goodbye, got %q", out)
	}
	if len(cli.history) != 4 {
		t.Errorf("Expected 4 history entries, got %d: %v", len(cli.history), cli.history)
	}
}

func TestCLIAddToHistory(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.addToHistory(".find")
	cli.addToHistory(".rows")

	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(cli.history))
	}

	// Adding duplicate of last command should not increase count
	cli.addToHistory(".rows")
	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries after duplicate, got %d", len(cli.history))
	}
}

func TestCLIHistoryLimit(t *testing.T) {
	cli, _ := setupTestCLI(t)

	for i := 0; i < 1100; i++ {
		cli.addToHistory(".read " + string(rune(i)))
	}

	if len(cli.history) > 1000 {
		t.Errorf("Expected history to be limited to 1000, got %d", len(cli.history))
	}
}

func TestCLIGetPrompt(t *testing.T) {
	cli, _ := setupTestCLI(t)

	prompt := cli.getPrompt(false)
	if !strings.Contains(prompt, "flintdb") {
		t.Error("Expected prompt to contain 'flintdb'")
	}

	prompt = cli.getPrompt(true)
	if !strings.Contains(prompt, "...>") {
		t.Error("Expected multi-line prompt to contain '...>'")
	}

	cli.current = "/tmp/x/customer.flintdb"
	prompt = cli.getPrompt(false)
	if !strings.Contains(prompt, "(customer.flintdb)") {
		t.Errorf("Expected prompt to contain the open name, got %q", prompt)
	}
}

func TestCLIHandleCommand(t *testing.T) {
	cli, _ := setupTestCLI(t)

	tests := []struct {
		command  string
		expected bool
	}{
		{".help", true},
		{".version", true},
		{".history", true},
		{".schema", true},
		{".open", true},
		{".import", true},
		{".unknown", true}, // Unknown commands are still handled (with error message)
		{".quit", false},
		{".exit", false},
	}

	for _, test := range tests {
		result := cli.handleCommand(test.command)
		if result != test.expected {
			t.Errorf("handleCommand(%s) = %v, expected %v", test.command, result, test.expected)
		}
	}
}

func TestVersionVariable(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"single statement", "INSERT INTO t VALUES (1)", 1},
		{"two statements", "INSERT INTO t VALUES (1); INSERT INTO t VALUES (2)", 2},
		{"with comments", "-- comment\nINSERT INTO t VALUES (1)", 1},
		{"multiline", "CREATE TABLE t (\n  id INT,\n  name STRING\n);", 1},
		{"dot commands", ".open t\n.find WHERE a = 1\n", 2},
		{"mixed", "CREATE TABLE t (id INT);\n.rows\nINSERT INTO t VALUES (1);", 3},
		{"empty", "", 0},
		{"only semicolons", ";;;", 0},
		{"string with semicolon", "INSERT INTO t VALUES ('a;b')", 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := splitStatements(test.input)
			if len(result) != test.expected {
				t.Errorf("splitStatements(%q) = %d statements %q, expected %d", test.input, len(result), result, test.expected)
			}
		})
	}
}

func TestSplitValues(t *testing.T) {
	values := splitValues("1, 'Customer, 1', \"x\", NULL")
	expected := []string{"1", "Customer, 1", "x", "NULL"}
	if len(values) != len(expected) {
		t.Fatalf("Expected %d values, got %d: %q", len(expected), len(values), values)
	}
	for i := range expected {
		if values[i] != expected[i] {
			t.Errorf("Expected value %d to be %q, got %q", i, expected[i], values[i])
		}
	}
	if got := splitValues("  "); len(got) != 0 {
		t.Errorf("Expected no values, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"exact", 5, "exact"},
		{"ab", 10, "ab"},
	}

	for _, test := range tests {
		result := truncate(test.input, test.max)
		if result != test.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", test.input, test.max, result, test.expected)
		}
	}
}

func TestImportFile(t *testing.T) {
	cli, _ := setupTestCLI(t)

	script := filepath.Join(t.TempDir(), "shop.flint")
	content := customerDDL + ";\n" +
		"-- three customers\n" +
		"INSERT INTO customer VALUES (1, 'Customer 1', 30);\n" +
		"INSERT INTO customer VALUES (2, 'Customer 2', 31);\n" +
		"INSERT INTO customer VALUES (3, 'Customer 3', 32);\n" +
		"INSERT INTO customer VALUES (4);\n" +
		".rows\n"
	if err := os.WriteFile(script, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	if err := cli.importFile(script); err != nil {
		t.Fatalf("importFile failed: %v", err)
	}
	if cli.table == nil {
		t.Fatal("Expected the script to leave the table open")
	}
	rows, err := cli.table.Rows()
	if err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if rows != 3 {
		t.Errorf("Expected 3 customers, got %d", rows)
	}
}

func TestImportFileNotFound(t *testing.T) {
	cli, _ := setupTestCLI(t)

	if err := cli.importFile("nonexistent.flint"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}
