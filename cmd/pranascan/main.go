package main

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"

	"github.com/alecthomas/kong"
	konghcl "github.com/alecthomas/kong-hcl/v2"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/cmd/pranascan/commands"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/failinject"
	plog "github.com/squareup/pranascan/log"
	"github.com/squareup/pranascan/metrics/prometheus"
	"github.com/squareup/pranascan/scan"
	"muzzammil.xyz/jsonc"
)

type arguments struct {
	Config kong.ConfigFlag `help:"Path to config file, HCL or JSON with comments" type:"existingfile"`
	Log    plog.Config     `help:"Configuration for the logger" embed:"" prefix:"log-"`
	Scan   conf.Config     `help:"Scan configuration" embed:"" prefix:""`

	Schema commands.SchemaCommand `cmd:"" help:"Print the schema of a file"`
	Read   commands.ScanCommand   `cmd:"" name:"scan" help:"Read a file with optional projection, filter and row limit"`
	Token  commands.TokenCommand  `cmd:"" help:"Register a file scan and print its token"`
	Exec   commands.ExecCommand   `cmd:"" help:"Execute a scan token"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func newParser(cfg *arguments) (*kong.Kong, error) {
	parser, err := kong.New(cfg,
		kong.Name("pranascan"),
		kong.Description("Deferred scans of Parquet and Arrow IPC files"),
		kong.Configuration(loadConfig),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return parser, nil
}

func run(args []string, out io.Writer) error {
	cfg := arguments{}
	parser, err := newParser(&cfg)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := cfg.Log.Configure(); err != nil {
		return err
	}
	if err := cfg.Scan.Validate(); err != nil {
		return err
	}
	factory := prometheus.NewFactory(cfg.Scan)
	if err := factory.Start(); err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err := factory.Stop(); err != nil {
			log.Warnf("failed to stop metrics: %v", err)
		}
	}()
	env, err := scan.NewEnv(&cfg.Scan, nil, nil, factory, failinject.NewDummyInjector())
	if err != nil {
		return err
	}
	return kctx.Run(&commands.Context{Env: env, Out: out})
}

// loadConfig accepts HCL, or JSON with comments when the document starts with a brace. JSON keys are the
// flag names with underscores.
func loadConfig(r io.Reader) (kong.Resolver, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '{' {
		return kong.JSON(bytes.NewReader(jsonc.ToJSON(b)))
	}
	return konghcl.Loader(bytes.NewReader(b))
}
