package main

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/squareup/rowstore/common"
	"github.com/squareup/rowstore/conf"
	"github.com/squareup/rowstore/errors"
	"github.com/squareup/rowstore/metrics"
	"github.com/squareup/rowstore/metrics/prometheus"
	"github.com/squareup/rowstore/rowdata"
	"github.com/squareup/rowstore/rowdef"
	"github.com/squareup/rowstore/storage"
	"github.com/squareup/rowstore/table"
)

// runContext is bound into every command's Run method.
type runContext struct {
	cfg conf.Config
	out io.Writer
}

// withTable opens the configured storage for the duration of f.
func (rc *runContext) withTable(def string, f func(tab *table.Table) error) error {
	rd, err := parseRowDefFlag(def)
	if err != nil {
		return err
	}
	if err := rc.cfg.Validate(); err != nil {
		return err
	}
	var factory metrics.Factory = metrics.NewNopFactory()
	if rc.cfg.MetricsEnabled {
		factory = prometheus.NewFactory(rc.cfg)
		if err := factory.Start(); err != nil {
			return err
		}
		defer func() {
			if err := factory.Stop(); err != nil {
				log.Warnf("failed to stop metrics server %v", err)
			}
		}()
	}
	m, err := table.NewMetrics(factory)
	if err != nil {
		return err
	}
	st, err := storage.NewStorage(rc.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnf("failed to close storage %v", err)
		}
	}()
	return f(table.NewTable(rd, st, m))
}

type encodeCmd struct {
	Def   string `help:"Row definition as <id>:<descriptor>" required:""`
	Input string `help:"File with one JSON array of values per line, or - for stdin" default:"-"`
	Out   string `help:"Record file to write" required:"" type:"path"`
}

func (c *encodeCmd) Run(rc *runContext) error {
	rd, err := parseRowDefFlag(c.Def)
	if err != nil {
		return err
	}
	in := io.Reader(os.Stdin)
	if c.Input != "-" {
		f, err := os.Open(c.Input)
		if err != nil {
			return errors.WithStack(err)
		}
		defer common.InvokeCloser(f)
		in = f
	}
	var buffer []byte
	count := 0
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 32*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if isBlank(line) {
			continue
		}
		values, err := parseValues(rd, line)
		if err != nil {
			return err
		}
		buffer, err = rowdata.AppendRow(buffer, rd, values)
		if err != nil {
			return err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return errors.WithStack(err)
	}
	if err := ioutil.WriteFile(c.Out, buffer, 0o640); err != nil {
		return errors.WithStack(err)
	}
	fmt.Fprintf(rc.out, "wrote %d records (%d bytes) to %s\n", count, len(buffer), c.Out)
	return nil
}

type dumpCmd struct {
	Defs []string `name:"def" help:"Row definitions as <id>:<descriptor>, one per record type in the file" sep:";" required:""`
	File string   `arg:"" help:"Record file" type:"existingfile"`
}

func (c *dumpCmd) Run(rc *runContext) error {
	cache := rowdef.NewRowDefCache()
	for _, def := range c.Defs {
		rd, err := parseRowDefFlag(def)
		if err != nil {
			return err
		}
		if err := cache.Put(rd); err != nil {
			return err
		}
	}
	bytes, err := ioutil.ReadFile(c.File)
	if err != nil {
		return errors.WithStack(err)
	}
	row := rowdata.NewRowData(bytes)
	for {
		ok, err := row.NextRow()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		rd, err := cache.MustGet(row.RowDefID())
		if err != nil {
			return err
		}
		if err := row.CheckRowDef(rd); err != nil {
			return err
		}
		fmt.Fprintf(rc.out, "%d: %s\n", row.RowStart(), row.ToString(rd))
	}
}

type putCmd struct {
	Def    string `help:"Row definition as <id>:<descriptor>" required:""`
	RowID  uint64 `arg:"" help:"Row id"`
	Values string `arg:"" help:"JSON array of values"`
}

func (c *putCmd) Run(rc *runContext) error {
	return rc.withTable(c.Def, func(tab *table.Table) error {
		values, err := parseValues(tab.RowDef(), c.Values)
		if err != nil {
			return err
		}
		return tab.Put(c.RowID, values)
	})
}

type getCmd struct {
	Def   string `help:"Row definition as <id>:<descriptor>" required:""`
	RowID uint64 `arg:"" help:"Row id"`
}

func (c *getCmd) Run(rc *runContext) error {
	return rc.withTable(c.Def, func(tab *table.Table) error {
		row, err := tab.Get(c.RowID)
		if err != nil {
			return err
		}
		if row == nil {
			fmt.Fprintf(rc.out, "row %d not found\n", c.RowID)
			return nil
		}
		fmt.Fprintln(rc.out, row.ToString(tab.RowDef()))
		return nil
	})
}

type deleteCmd struct {
	Def   string `help:"Row definition as <id>:<descriptor>" required:""`
	RowID uint64 `arg:"" help:"Row id"`
}

func (c *deleteCmd) Run(rc *runContext) error {
	return rc.withTable(c.Def, func(tab *table.Table) error {
		return tab.Remove(c.RowID)
	})
}

type scanCmd struct {
	Def   string `help:"Row definition as <id>:<descriptor>" required:""`
	From  uint64 `help:"First row id to return" default:"0"`
	Limit int    `help:"Maximum number of rows, -1 for all" default:"-1"`
}

func (c *scanCmd) Run(rc *runContext) error {
	return rc.withTable(c.Def, func(tab *table.Table) error {
		rows, err := tab.Scan(c.From, c.Limit)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Fprintf(rc.out, "%d: %s\n", row.RowID, row.Data.ToString(tab.RowDef()))
		}
		return nil
	})
}
