// Command httpreq executes a request descriptor once, outside of Kubernetes,
// and prints the output records as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/yaml"

	"github.com/konnektr-io/http-request-operator/internal/credentials"
	"github.com/konnektr-io/http-request-operator/internal/httprequest"
)

// attachments collects repeated -attach field=path flags.
type attachments []string

func (a *attachments) String() string { return strings.Join(*a, ",") }

func (a *attachments) Set(v string) error {
	if field, path, ok := strings.Cut(v, "="); !ok || field == "" || path == "" {
		return fmt.Errorf("expected field=path, got %q", v)
	}
	*a = append(*a, v)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if httprequest.IsConfigError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("httpreq", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		descriptorPath  = fs.String("descriptor", "", "Request descriptor file (YAML or JSON)")
		itemsPath       = fs.String("items", "", "Input records file, a JSON or YAML list of objects. Defaults to one empty record")
		credentialsPath = fs.String("credentials", "", "Credentials file mapping credential type to fields")
		debug           = fs.Bool("debug", false, "Log sanitized outbound requests")
		grouped         = fs.Bool("grouped", false, "Print one list of records per input instead of a flat list")
		attach          attachments
	)
	fs.Var(&attach, "attach", "Attach a file to every input as binary field, field=path. May be repeated")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *descriptorPath == "" {
		return errors.New("-descriptor is required")
	}

	log := logr.Discard()
	if *debug {
		log = zap.New(zap.WriteTo(stderr), zap.UseDevMode(true))
	}

	desc, err := loadDescriptor(*descriptorPath)
	if err != nil {
		return err
	}
	items, err := loadItems(*itemsPath)
	if err != nil {
		return err
	}
	if err := attachFiles(items, attach); err != nil {
		return err
	}

	store := credentials.NewFileStore(nil)
	if *credentialsPath != "" {
		if store, err = credentials.LoadFileStore(*credentialsPath); err != nil {
			return err
		}
	}
	host := credentials.NewHost(store, nil, log)

	result, err := httprequest.NewExecutor(httprequest.WithLogger(log)).Execute(ctx, host, desc, items)
	if err != nil {
		return err
	}

	var out any = result.Items()
	if *grouped {
		out = result.Groups
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadDescriptor(path string) (*httprequest.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	desc := &httprequest.Descriptor{}
	if err := yaml.UnmarshalStrict(data, desc); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	return desc, nil
}

func loadItems(path string) ([]httprequest.Item, error) {
	if path == "" {
		return []httprequest.Item{{JSON: map[string]any{}}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse items: %w", err)
	}
	items := make([]httprequest.Item, len(records))
	for i, rec := range records {
		if rec == nil {
			rec = map[string]any{}
		}
		items[i] = httprequest.Item{JSON: rec}
	}
	return items, nil
}

func attachFiles(items []httprequest.Item, attach attachments) error {
	for _, a := range attach {
		field, path, _ := strings.Cut(a, "=")
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read attachment %s: %w", field, err)
		}
		for i := range items {
			if items[i].Binary == nil {
				items[i].Binary = map[string]*httprequest.BinaryData{}
			}
			items[i].Binary[field] = httprequest.NewBinaryData(data, filepath.Base(path), "")
		}
	}
	return nil
}
