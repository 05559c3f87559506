// Command tutorial walks through the FlintDB API: it creates a customer
// table, queries and updates it, then writes and scans a TSV file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nickyhof/flintdb"
	"github.com/nickyhof/flintdb/config"
	"github.com/nickyhof/flintdb/logging"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	dir := flag.String("dir", "./temp", "Directory for the tutorial table and file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flintdb.Configure(cfg, logger.Logger)

	err = run(*dir)
	if cerr := flintdb.Cleanup(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Error("tutorial failed", "error", err)
	}
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tablePath := filepath.Join(dir, "tutorial_customer.flintdb")
	filePath := filepath.Join(dir, "tutorial_products.tsv")

	steps := []struct {
		title string
		fn    func() error
	}{
		{"Create table and insert customers", func() error { return createTable(tablePath) }},
		{"Find customers with age >= 31", func() error { return findCustomers(tablePath) }},
		{"Update and delete customers", func() error { return updateCustomers(tablePath) }},
		{"Find customers again", func() error { return findCustomers(tablePath) }},
		{"Create TSV file and write products", func() error { return createProducts(filePath) }},
		{"Find products with product_id >= 102", func() error { return findProducts(filePath) }},
	}
	for i, step := range steps {
		fmt.Printf("\n--- %d. %s ---\n", i+1, step.title)
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.title, err)
		}
	}
	return nil
}

func customerMeta() (*flintdb.Meta, error) {
	meta, err := flintdb.NewMeta("tutorial_customer")
	if err != nil {
		return nil, err
	}
	for _, c := range []struct {
		name string
		typ  flintdb.Type
		size int
		def  string
	}{
		{"id", flintdb.Int64, 0, "0"},
		{"name", flintdb.String, 50, ""},
		{"age", flintdb.Int32, 0, "0"},
	} {
		if err := meta.AddColumn(c.name, c.typ, c.size, 0, flintdb.NotNull, c.def, ""); err != nil {
			meta.Close()
			return nil, err
		}
	}
	if err := meta.AddIndex(flintdb.PrimaryIndex, "id"); err != nil {
		meta.Close()
		return nil, err
	}
	if err := meta.AddIndex("ix_age", "age"); err != nil {
		meta.Close()
		return nil, err
	}
	return meta, nil
}

func createTable(path string) error {
	if err := flintdb.DropTable(path); err != nil {
		return err
	}
	meta, err := customerMeta()
	if err != nil {
		return err
	}
	defer meta.Close()

	text, err := meta.ToSQL()
	if err != nil {
		return err
	}
	fmt.Println(text)

	table, err := flintdb.OpenTable(path, flintdb.ReadWrite, meta)
	if err != nil {
		return err
	}
	defer table.Close()

	for i := 1; i <= 3; i++ {
		row, err := table.CreateRow()
		if err != nil {
			return err
		}
		err = row.SetInt64ByName("id", int64(i))
		if err == nil {
			err = row.SetStringByName("name", fmt.Sprintf("Customer %d", i))
		}
		if err == nil {
			err = row.SetInt32ByName("age", int32(29+i))
		}
		if err == nil {
			_, err = table.Apply(row)
		}
		row.Close()
		if err != nil {
			return err
		}
	}

	rows, err := table.Rows()
	if err != nil {
		return err
	}
	fmt.Printf("Inserted %d rows\n", rows)
	return nil
}

func findCustomers(path string) error {
	table, err := flintdb.OpenTable(path, flintdb.ReadOnly, nil)
	if err != nil {
		return err
	}
	defer table.Close()

	cursor, err := table.Find("WHERE age >= 31")
	if err != nil {
		return err
	}
	defer cursor.Close()

	for id, err := range cursor.All() {
		if err != nil {
			return err
		}
		row, err := table.Read(id)
		if err != nil {
			return err
		}
		fmt.Printf("  rowid=%d %s\n", id, row)
	}
	return nil
}

func updateCustomers(path string) error {
	table, err := flintdb.OpenTable(path, flintdb.ReadWrite, nil)
	if err != nil {
		return err
	}
	defer table.Close()

	// Rows are borrowed, so collect the ids before mutating.
	cursor, err := table.Find("WHERE age = 30")
	if err != nil {
		return err
	}
	var ids []int64
	for id, err := range cursor.All() {
		if err != nil {
			cursor.Close()
			return err
		}
		ids = append(ids, id)
	}
	cursor.Close()

	for _, id := range ids {
		current, err := table.Read(id)
		if err != nil {
			return err
		}
		row, err := current.Copy()
		if err != nil {
			return err
		}
		err = row.SetStringByName("name", "Updated Customer")
		if err == nil {
			err = row.SetInt32ByName("age", 35)
		}
		if err == nil {
			err = table.ApplyAt(id, row)
		}
		row.Close()
		if err != nil {
			return err
		}
		fmt.Printf("  updated rowid=%d\n", id)
	}

	row, err := table.One(flintdb.PrimaryIndex, "3")
	if err != nil {
		return err
	}
	id := row.ID()
	if err := table.DeleteAt(id); err != nil {
		return err
	}
	fmt.Printf("  deleted rowid=%d\n", id)
	return nil
}

func productMeta() (*flintdb.Meta, error) {
	meta, err := flintdb.NewMeta("tutorial_products")
	if err != nil {
		return nil, err
	}
	err = meta.AddColumn("product_id", flintdb.Int32, 0, 0, flintdb.NotNull, "", "")
	if err == nil {
		err = meta.AddColumn("product_name", flintdb.String, 100, 0, flintdb.Nullable, "", "")
	}
	if err == nil {
		err = meta.AddColumn("price", flintdb.Double, 0, 0, flintdb.Nullable, "", "")
	}
	if err == nil {
		err = meta.SetFormatTSV()
	}
	if err != nil {
		meta.Close()
		return nil, err
	}
	return meta, nil
}

func createProducts(path string) error {
	if err := flintdb.DropGenericFile(path); err != nil {
		return err
	}
	meta, err := productMeta()
	if err != nil {
		return err
	}
	defer meta.Close()

	f, err := flintdb.OpenGenericFile(path, flintdb.ReadWrite, meta)
	if err != nil {
		return err
	}

	for i := 0; i < 3; i++ {
		row, err := f.CreateRow()
		if err != nil {
			f.Close()
			return err
		}
		err = row.SetInt32(0, int32(101+i))
		if err == nil {
			err = row.SetString(1, fmt.Sprintf("Product-%c", 'A'+i))
		}
		if err == nil {
			err = row.SetFloat64(2, 9.99*float64(i+1))
		}
		if err == nil {
			err = f.Write(row)
		}
		row.Close()
		if err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote 3 products to %s\n", path)
	return nil
}

func findProducts(path string) error {
	f, err := flintdb.OpenGenericFile(path, flintdb.ReadOnly, nil)
	if err != nil {
		return err
	}
	defer f.Close()

	cursor, err := f.Find("WHERE product_id >= 102")
	if err != nil {
		return err
	}
	defer cursor.Close()

	for row, err := range cursor.All() {
		if err != nil {
			return err
		}
		fmt.Printf("  %s\n", row)
	}
	return nil
}
