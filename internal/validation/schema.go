// Package validation compiles the JSON Schemas that guard every oracle
// response shape and the run spec, and formats violations as readable
// error strings.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// Compiled schemas for each oracle task's response shape.
var (
	LearnPatternsSchema     *jsonschema.Schema
	ConfirmBoundariesSchema *jsonschema.Schema
	ClassifyTurnSchema      *jsonschema.Schema
	VerifyTurnsSchema       *jsonschema.Schema
	JudgeSchema             *jsonschema.Schema

	runSpecSchema *jsonschema.Schema
)

func init() {
	LearnPatternsSchema = mustCompileSchema(learnPatternsSchemaJSON, "learn-patterns.schema.json")
	ConfirmBoundariesSchema = mustCompileSchema(confirmBoundariesSchemaJSON, "confirm-boundaries.schema.json")
	ClassifyTurnSchema = mustCompileSchema(classifyTurnSchemaJSON, "classify-turn.schema.json")
	VerifyTurnsSchema = mustCompileSchema(verifyTurnsSchemaJSON, "verify-turns.schema.json")
	JudgeSchema = mustCompileSchema(judgeSchemaJSON, "judge.schema.json")
	runSpecSchema = mustCompileSchema(runSpecSchemaJSON, "runspec.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Against validates an already-decoded JSON instance against a schema and
// returns human-readable violations. Nil means valid.
func Against(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

// ValidateRunSpecBytes validates raw run-spec YAML against its schema.
func ValidateRunSpecBytes(data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	return Against(runSpecSchema, convertToJSONCompatible(yamlDoc))
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible converts YAML-decoded values to JSON-compatible
// types. yaml.v3 decodes to map[string]any which is fine, but integers need
// to stay as-is.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}
