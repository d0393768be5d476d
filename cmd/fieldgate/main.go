package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ash-project/fieldgate/internal/compiler"
	"github.com/ash-project/fieldgate/internal/eventbus"
	"github.com/ash-project/fieldgate/internal/naming"
	"github.com/ash-project/fieldgate/internal/otel"
	"github.com/ash-project/fieldgate/internal/request"
	"github.com/ash-project/fieldgate/internal/schema"
	"github.com/ash-project/fieldgate/internal/server"
	"github.com/ash-project/fieldgate/internal/store"
)

const rootUsage = `fieldgate — field selection gateway for typed resources

USAGE:
  fieldgate <command> [flags]

COMMANDS:
  serve            Run the HTTP gateway over a JSON-declared registry and dataset
  explain          Compile a field request and print the fetch plan and template
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema <file>             Resource registry declaration JSON (required)
  -data <file>               Dataset JSON, records keyed by resource name
  -format <camel|none>       Client-facing naming convention (default: camel)
  -server.addr <addr>        HTTP listen address (default: :8080)
  -server.pretty             Pretty-print JSON responses
  -server.timeout <duration> Per-request timeout, e.g. 10s (default: 10s)
  -server.cors <origin>      Allowed CORS origin. Repeatable
  -otel.endpoint <addr>      OTLP collector endpoint
  -otel.service <name>       OpenTelemetry service name (default: fieldgate)

Relationships are resolved by convention: a to-one relationship reads
"<name>_id" on the owning record; a to-many relationship collects destination
records whose "<resource>_id" matches the owner's "id".
`

const explainUsage = `explain FLAGS:
  -schema <file>         Resource registry declaration JSON (required)
  -resource <name>       Resource to compile against (required)
  -fields <json>         Field list JSON, e.g. '["id",{"user":["name"]}]' (required)
  -format <camel|none>   Client-facing naming convention (default: camel)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		logrus.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("fieldgate", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "explain":
		return cmdExplain(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "explain":
		fmt.Print(explainUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func formatterFor(name string) (naming.Formatter, error) {
	switch name {
	case "camel", "":
		return naming.CamelCase{}, nil
	case "none":
		return naming.Passthrough{}, nil
	}
	return nil, fmt.Errorf("unknown naming convention %q", name)
}

func loadRegistry(path string) (*schema.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return schema.DecodeRegistry(f)
}

func cmdServe(args []string) error {
	schemaPath := ""
	dataPath := ""
	format := "camel"
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	otelEndpoint := ""
	otelService := "fieldgate"
	var corsOrigins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", schemaPath, "Registry declaration JSON")
	fs.StringVar(&dataPath, "data", dataPath, "Dataset JSON")
	fs.StringVar(&format, "format", format, "Client-facing naming convention")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&corsOrigins, "server.cors", "Allowed CORS origin")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if schemaPath == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-schema is required")
	}

	formatter, err := formatterFor(format)
	if err != nil {
		return err
	}
	registry, err := loadRegistry(schemaPath)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	st := store.New(registry)
	if dataPath != "" {
		if err := seedFromFile(st, dataPath); err != nil {
			return fmt.Errorf("load data: %w", err)
		}
	}
	wireConventionResolvers(registry, st)

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	log := logrus.New()
	opts := []server.Option{server.WithLogger(log)}
	if pretty {
		opts = append(opts, server.WithPretty())
	}
	if timeout > 0 {
		opts = append(opts, server.WithTimeout(timeout))
	}
	if len(corsOrigins) > 0 {
		opts = append(opts, server.WithCORS(corsOrigins...))
	}
	handler := server.New(registry, st, formatter, opts...)

	log.WithField("addr", addr).Info("listening")
	return http.ListenAndServe(addr, handler)
}

func seedFromFile(st *store.Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var dataset map[string][]map[string]any
	if err := json.Unmarshal(raw, &dataset); err != nil {
		return err
	}
	for resource, records := range dataset {
		st.Seed(resource, records)
	}
	return nil
}

// wireConventionResolvers registers foreign-key resolvers for every declared
// relationship: to-one reads "<name>_id" on the owner, to-many matches the
// destination's "<owner>_id" against the owner's "id".
func wireConventionResolvers(registry *schema.Registry, st *store.Store) {
	for _, name := range registry.Names() {
		res := registry.Resource(name)
		for _, rel := range res.Relationships {
			if rel.Cardinality == schema.CardinalityMany {
				st.Resolve(name, rel.Name, st.HasMany(rel.Destination, name+"_id"))
			} else {
				st.Resolve(name, rel.Name, st.HasOne(rel.Destination, rel.Name+"_id"))
			}
		}
	}
}

func cmdExplain(args []string) error {
	schemaPath := ""
	resource := ""
	fields := ""
	format := "camel"

	fs := flag.NewFlagSet("explain", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", schemaPath, "Registry declaration JSON")
	fs.StringVar(&resource, "resource", resource, "Resource to compile against")
	fs.StringVar(&fields, "fields", fields, "Field list JSON")
	fs.StringVar(&format, "format", format, "Client-facing naming convention")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, explainUsage)
		return err
	}
	if schemaPath == "" || resource == "" || fields == "" {
		fmt.Fprint(os.Stderr, explainUsage)
		return fmt.Errorf("-schema, -resource and -fields are required")
	}

	formatter, err := formatterFor(format)
	if err != nil {
		return err
	}
	registry, err := loadRegistry(schemaPath)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	res := registry.Resource(formatter.ToInternal(resource))
	if res == nil {
		return fmt.Errorf("unknown resource %q", resource)
	}

	var raw any
	if err := json.Unmarshal([]byte(fields), &raw); err != nil {
		return fmt.Errorf("parse fields: %w", err)
	}
	nodes, err := request.Normalize(raw, formatter)
	if err != nil {
		return err
	}
	fp, tpl, err := compiler.New(registry, formatter).Compile(res, nodes)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{"fetchPlan": fp, "template": tpl}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
