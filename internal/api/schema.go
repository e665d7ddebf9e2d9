package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Schema names in the embedded OpenAPI document.
const (
	SchemaLoginResponse     = "LoginResponse"
	SchemaValidateResponse  = "ValidateResponse"
	SchemaMenuList          = "MenuList"
	SchemaAdminUserList     = "AdminUserList"
	SchemaRoleList          = "RoleList"
	SchemaPermissionList    = "PermissionList"
	SchemaSignupResponse    = "SignupResponse"
	SchemaVerifyOTPResponse = "VerifyOtpResponse"
	SchemaWorkflow          = "CandidateWorkflow"
	SchemaWorkflowList      = "CandidateWorkflowList"
	SchemaWorkflowStats     = "WorkflowStats"
	SchemaTraining          = "TrainingMaster"
	SchemaTrainingList      = "TrainingMasterList"
	SchemaBatch             = "TrainingBatch"
	SchemaBatchList         = "TrainingBatchList"
)

// Schemas validates response bodies against the backend's OpenAPI contract.
type Schemas struct {
	doc *openapi3.T
}

var (
	defaultSchemas    *Schemas
	defaultSchemasErr error
	schemasOnce       sync.Once
)

// LoadSchemas parses and validates the embedded OpenAPI document once.
func LoadSchemas() (*Schemas, error) {
	schemasOnce.Do(func() {
		defaultSchemas, defaultSchemasErr = ParseSchemas(openapiSpec)
	})
	return defaultSchemas, defaultSchemasErr
}

// ParseSchemas loads an OpenAPI document from data.
func ParseSchemas(data []byte) (*Schemas, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	return &Schemas{doc: doc}, nil
}

// Validate checks a JSON body against the named component schema.
func (s *Schemas) Validate(name string, body []byte) error {
	ref, ok := s.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return fmt.Errorf("unknown schema %q", name)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("response does not match %s: %w", name, err)
	}
	return nil
}
