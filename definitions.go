package processmap

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed schemas/workflow.schema.json
	workflowDocumentSchema string

	//go:embed schemas/mocks.schema.json
	mocksDocumentSchema string
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateDocument checks a decoded YAML document against one of the
// embedded definition schemas.
func validateDocument(kind, documentSchema string, doc any) error {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	dataLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %s document: %w", kind, err)
	}
	if !result.Valid() {
		var problems []string
		for _, resultErr := range result.Errors() {
			problems = append(problems, resultErr.String())
		}
		return fmt.Errorf("invalid %s document: %s", kind, strings.Join(problems, "; "))
	}
	return nil
}

// decodeDocument parses YAML (or JSON) data, validates it against the given
// definition schema and decodes it into out.
func decodeDocument(kind, documentSchema string, data []byte, out any) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal %s document: %w", kind, err)
	}
	if err := validateDocument(kind, documentSchema, doc); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s document: %w", kind, err)
	}
	return nil
}

// validateStruct runs the struct tag validation and flattens the field errors
// into a single readable error.
func validateStruct(kind string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("invalid %s: %w", kind, err)
	}
	problems := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fieldErr.Namespace(), fieldErr.Tag()))
	}
	return fmt.Errorf("invalid %s: %s", kind, strings.Join(problems, ", "))
}
