//go:build !duckdb

package native

import (
	"fmt"

	"github.com/nickyhof/flintdb/core"
)

var errNoParquet = fmt.Errorf("%w: parquet files require a build with the duckdb tag", ErrUnsupported)

func openParquetReader(path string, meta *core.Meta) (recordReader, error) {
	return nil, errNoParquet
}

func inferParquetMeta(path string) (*core.Meta, error) {
	return nil, errNoParquet
}

func newParquetWriter(path string, meta *core.Meta, existing [][]core.Value) (recordWriter, error) {
	return nil, errNoParquet
}
