package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	konghcl "github.com/alecthomas/kong-hcl/v2"
	"github.com/squareup/rowstore/common"
	"github.com/squareup/rowstore/conf"
	"github.com/squareup/rowstore/errors"
	rlog "github.com/squareup/rowstore/log"
)

type arguments struct {
	Config kong.ConfigFlag `help:"Path to an HCL config file" type:"existingfile"`
	Log    rlog.Config     `help:"Configuration for the logger" embed:"" prefix:"log-"`
	Store  conf.Config     `help:"Storage and metrics configuration" embed:"" prefix:""`

	Encode encodeCmd `cmd:"" help:"Encode rows, one JSON array per line, into a record file"`
	Dump   dumpCmd   `cmd:"" help:"Print every record of a record file"`
	Put    putCmd    `cmd:"" help:"Store a row"`
	Get    getCmd    `cmd:"" help:"Print a stored row"`
	Delete deleteCmd `cmd:"" help:"Delete a stored row"`
	Scan   scanCmd   `cmd:"" help:"Print stored rows in row id order"`
}

func main() {
	defer common.PanicHandler()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var rerr errors.RowStoreError
		if !errors.As(err, &rerr) {
			rerr = common.LogInternalError(err)
		}
		fmt.Fprintln(os.Stderr, rerr.Error())
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg := arguments{}
	parser, err := kong.New(&cfg,
		kong.Name("rowtool"),
		kong.Description("Encode, inspect and store framed row records"),
		kong.Configuration(konghcl.Loader),
	)
	if err != nil {
		return errors.WithStack(err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := cfg.Log.Configure(); err != nil {
		return err
	}
	return kctx.Run(&runContext{cfg: cfg.Store, out: out})
}
