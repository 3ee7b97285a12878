package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"

	"github.com/konnektr-io/http-request-operator/internal/httprequest"
)

// PairedItemAnnotation records which input produced a rendered resource.
const PairedItemAnnotation = "konnektr.io/paired-item"

// TemplateProcessor renders output records into Kubernetes resources.
type TemplateProcessor struct {
	tmpl *template.Template
}

// NewTemplateProcessor parses templateStr once for all records.
func NewTemplateProcessor(templateStr string) (*TemplateProcessor, error) {
	tmpl, err := template.New("resource").Funcs(sprig.TxtFuncMap()).Option("missingkey=default").Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &TemplateProcessor{tmpl: tmpl}, nil
}

// Render executes the template with data.
func (tp *TemplateProcessor) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := tp.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// ParseResources decodes a YAML or JSON stream of one or more documents.
// Empty documents are skipped.
func ParseResources(data string) ([]*unstructured.Unstructured, error) {
	var resources []*unstructured.Unstructured
	decoder := utilyaml.NewYAMLOrJSONDecoder(bytes.NewReader([]byte(data)), 4096)
	for {
		var obj map[string]any
		if err := decoder.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse document as JSON or YAML: %w", err)
		}
		if len(obj) == 0 {
			continue
		}
		resources = append(resources, &unstructured.Unstructured{Object: obj})
	}
	return resources, nil
}

// RecordData is the template scope of one output record.
func RecordData(record httprequest.OutputItem, index int) map[string]any {
	data := map[string]any{
		"Item":       record.JSON,
		"Index":      index,
		"PairedItem": record.PairedItem.Item,
		"Error":      "",
	}
	// records of failed requests carry nothing but the error
	if msg, ok := record.JSON["error"].(string); ok && len(record.JSON) == 1 {
		data["Error"] = msg
	}
	if len(record.Binary) > 0 {
		files := make(map[string]any, len(record.Binary))
		for name, bin := range record.Binary {
			files[name] = map[string]any{
				"fileName":      bin.FileName,
				"mimeType":      bin.MimeType,
				"fileExtension": bin.FileExtension,
				"fileSize":      bin.FileSize,
			}
		}
		data["Binary"] = files
	}
	return data
}

// ProcessOutputItems renders every record. A record that fails to render or
// parse is skipped and reported; the others are still returned.
func (tp *TemplateProcessor) ProcessOutputItems(records []httprequest.OutputItem) ([]*unstructured.Unstructured, []error) {
	var (
		allResources []*unstructured.Unstructured
		errs         []error
	)
	for i, record := range records {
		rendered, err := tp.Render(RecordData(record, i))
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}

		itemResources, err := ParseResources(rendered)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}

		for _, resource := range itemResources {
			annotations := resource.GetAnnotations()
			if annotations == nil {
				annotations = make(map[string]string)
			}
			annotations[PairedItemAnnotation] = strconv.Itoa(record.PairedItem.Item)
			resource.SetAnnotations(annotations)
		}
		allResources = append(allResources, itemResources...)
	}
	return allResources, errs
}
