// Command swaggergen generates OpenAPI 3.0 specification files (JSON and YAML)
// for the match favourites gateway API and writes them to the api/ directory.
//
// Usage:
//
//	go run ./tools/swaggergen
//
// # For Contributors
//
// When you modify the API (add/change endpoints, request/response schemas, etc.),
// update this file to keep the swagger spec in sync:
//
//  1. Endpoints: Edit buildPaths() to add/modify path items and operations
//  2. Schemas: Edit buildSchemas() to add/modify request/response types
//  3. Regenerate: Run `go run ./tools/swaggergen` from the project root
//  4. Verify: Check api/swagger.yaml and api/swagger.json for correctness
//
// Helper functions:
//   - errContent(): Returns standard error response content (reuse for error responses)
//   - matchIDParam(): Returns the {matchID} path parameter definition
//   - sessionHeaderParam(): Returns the X-Session-ID header parameter definition
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Lightweight OpenAPI 3.0 types
// ---------------------------------------------------------------------------

type OpenAPI struct {
	OpenAPI    string               `json:"openapi"              yaml:"openapi"`
	Info       Info                 `json:"info"                 yaml:"info"`
	Paths      map[string]*PathItem `json:"paths"                yaml:"paths"`
	Components Components           `json:"components"           yaml:"components"`
}

type Info struct {
	Title       string `json:"title"       yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version"     yaml:"version"`
}

type PathItem struct {
	Get    *Operation `json:"get,omitempty"    yaml:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"   yaml:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"    yaml:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty" yaml:"delete,omitempty"`
}

type Operation struct {
	Tags        []string              `json:"tags"                  yaml:"tags"`
	Summary     string                `json:"summary"               yaml:"summary"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	OperationID string                `json:"operationId"           yaml:"operationId"`
	Security    []map[string][]string `json:"security,omitempty"    yaml:"security,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"  yaml:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response   `json:"responses"             yaml:"responses"`
}

type Parameter struct {
	Name        string `json:"name"        yaml:"name"`
	In          string `json:"in"          yaml:"in"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required"    yaml:"required"`
	Schema      Schema `json:"schema"      yaml:"schema"`
}

type RequestBody struct {
	Required    bool                 `json:"required"              yaml:"required"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Content     map[string]MediaType `json:"content"               yaml:"content"`
}

type MediaType struct {
	Schema Schema `json:"schema" yaml:"schema"`
}

type Response struct {
	Description string               `json:"description"       yaml:"description"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

type Schema struct {
	Type        string            `json:"type,omitempty"        yaml:"type,omitempty"`
	Format      string            `json:"format,omitempty"      yaml:"format,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"  yaml:"properties,omitempty"`
	Items       *Schema           `json:"items,omitempty"       yaml:"items,omitempty"`
	Required    []string          `json:"required,omitempty"    yaml:"required,omitempty"`
	Enum        []string          `json:"enum,omitempty"        yaml:"enum,omitempty"`
	Ref         string            `json:"$ref,omitempty"        yaml:"$ref,omitempty"`
	Nullable    bool              `json:"nullable,omitempty"    yaml:"nullable,omitempty"`
	Example     any               `json:"example,omitempty"     yaml:"example,omitempty"`
}

type Components struct {
	Schemas         map[string]Schema         `json:"schemas"         yaml:"schemas"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes" yaml:"securitySchemes"`
}

type SecurityScheme struct {
	Type         string `json:"type"         yaml:"type"`
	Scheme       string `json:"scheme"       yaml:"scheme"`
	BearerFormat string `json:"bearerFormat" yaml:"bearerFormat"`
	Description  string `json:"description"  yaml:"description"`
}

// ---------------------------------------------------------------------------
// Spec builder
// ---------------------------------------------------------------------------

func buildSpec() OpenAPI {
	bearerAuth := []map[string][]string{{"BearerAuth": {}}}

	return OpenAPI{
		OpenAPI: "3.0.3",
		Info: Info{
			Title: "Match Favourites Gateway API",
			Description: "Session-scoped cache of a user's favourite football matches, " +
				"synchronised with the platform backend.",
			Version: "1.0.0",
		},
		Paths: buildPaths(bearerAuth),
		Components: Components{
			Schemas:         buildSchemas(),
			SecuritySchemes: buildSecuritySchemes(),
		},
	}
}

func buildPaths(bearerAuth []map[string][]string) map[string]*PathItem {
	return map[string]*PathItem{
		"/api/v1/session": {
			Post: &Operation{
				Tags:        []string{"Session"},
				Summary:     "Start a session",
				Description: "Opens a favourites session for the authenticated user. The cache starts empty.",
				OperationID: "startSession",
				Security:    bearerAuth,
				Responses: map[string]Response{
					"201": {Description: "Session started", Content: jsonContent("SessionResponse")},
					"401": {Description: "Unauthorized - missing or invalid JWT"},
				},
			},
			Delete: &Operation{
				Tags:        []string{"Session"},
				Summary:     "End a session",
				Description: "Logs out: discards the session and its cached favourites.",
				OperationID: "endSession",
				Security:    bearerAuth,
				Parameters:  []Parameter{sessionHeaderParam()},
				Responses: map[string]Response{
					"200": {Description: "Session ended", Content: jsonContent("SuccessMessage")},
					"400": {Description: "Missing or malformed session id", Content: errContent()},
					"401": {Description: "Unauthorized"},
					"403": {Description: "Session belongs to another user", Content: errContent()},
					"404": {Description: "Session not found", Content: errContent()},
				},
			},
		},
		"/api/v1/favourites": {
			Get: &Operation{
				Tags:        []string{"Favourites"},
				Summary:     "List user favourites",
				Description: "Returns the cached favourites of the session user, fetching them on first use.",
				OperationID: "getUserFavourites",
				Security:    bearerAuth,
				Parameters:  []Parameter{sessionHeaderParam()},
				Responses: map[string]Response{
					"200": {
						Description: "Favourites, newest first",
						Content: map[string]MediaType{
							"application/json": {Schema: Schema{
								Type:  "array",
								Items: &Schema{Ref: "#/components/schemas/FavouriteRecord"},
							}},
						},
					},
					"401": {Description: "Unauthorized - missing or invalid JWT"},
					"404": {Description: "Session not found", Content: errContent()},
					"502": {Description: "Favourites store unreachable", Content: errContent()},
				},
			},
		},
		"/api/v1/favourites/refresh": {
			Post: &Operation{
				Tags:        []string{"Favourites"},
				Summary:     "Refetch favourites",
				Description: "Discards the cached collection and fetches it again.",
				OperationID: "refreshUserFavourites",
				Security:    bearerAuth,
				Parameters:  []Parameter{sessionHeaderParam()},
				Responses: map[string]Response{
					"200": {
						Description: "Fresh favourites",
						Content: map[string]MediaType{
							"application/json": {Schema: Schema{
								Type:  "array",
								Items: &Schema{Ref: "#/components/schemas/FavouriteRecord"},
							}},
						},
					},
					"502": {Description: "Favourites store unreachable", Content: errContent()},
				},
			},
		},
		"/api/v1/favourites/{matchID}": {
			Get: &Operation{
				Tags:        []string{"Favourites"},
				Summary:     "Favourite status of a match",
				OperationID: "getFavouriteStatus",
				Security:    bearerAuth,
				Parameters:  []Parameter{matchIDParam(), sessionHeaderParam()},
				Responses: map[string]Response{
					"200": {Description: "Status", Content: jsonContent("FavouriteStatus")},
					"400": {Description: "Invalid match id", Content: errContent()},
					"502": {Description: "Favourites store unreachable", Content: errContent()},
				},
			},
			Put: &Operation{
				Tags:        []string{"Favourites"},
				Summary:     "Add a favourite",
				OperationID: "addFavourite",
				Security:    bearerAuth,
				Parameters:  []Parameter{matchIDParam(), sessionHeaderParam()},
				Responses:   mutationResponses("201", "Favourite added"),
			},
			Delete: &Operation{
				Tags:        []string{"Favourites"},
				Summary:     "Remove a favourite",
				OperationID: "removeFavourite",
				Security:    bearerAuth,
				Parameters:  []Parameter{matchIDParam(), sessionHeaderParam()},
				Responses:   mutationResponses("200", "Favourite removed"),
			},
		},
		"/api/v1/favourites/{matchID}/toggle": {
			Post: &Operation{
				Tags:    []string{"Favourites"},
				Summary: "Toggle a favourite",
				Description: "Adds the match when it is not a favourite and removes it otherwise. " +
					"Exactly one mutation is sent; the cache is refetched once the store answers.",
				OperationID: "toggleFavourite",
				Security:    bearerAuth,
				Parameters:  []Parameter{matchIDParam(), sessionHeaderParam()},
				Responses: func() map[string]Response {
					r := mutationResponses("201", "Favourite added")
					r["200"] = Response{Description: "Favourite removed", Content: jsonContent("MutationResponse")}
					return r
				}(),
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func matchIDParam() Parameter {
	return Parameter{
		Name:        "matchID",
		In:          "path",
		Description: "Positive identifier of the match",
		Required:    true,
		Schema:      Schema{Type: "integer", Format: "int64"},
	}
}

func sessionHeaderParam() Parameter {
	return Parameter{
		Name:        "X-Session-ID",
		In:          "header",
		Description: "Session id returned by POST /api/v1/session",
		Required:    true,
		Schema:      Schema{Type: "string", Format: "uuid"},
	}
}

func jsonContent(schema string) map[string]MediaType {
	return map[string]MediaType{
		"application/json": {Schema: Schema{Ref: "#/components/schemas/" + schema}},
	}
}

func errContent() map[string]MediaType {
	return jsonContent("ErrorResponse")
}

func mutationResponses(okCode, okDescription string) map[string]Response {
	return map[string]Response{
		okCode: {Description: okDescription, Content: jsonContent("MutationResponse")},
		"400":  {Description: "Invalid match id", Content: errContent()},
		"401":  {Description: "Unauthorized"},
		"404":  {Description: "Favourite or session not found", Content: errContent()},
		"409":  {Description: "A mutation of this match is already in flight", Content: errContent()},
		"502":  {Description: "Favourites store unreachable", Content: errContent()},
	}
}

func buildSecuritySchemes() map[string]SecurityScheme {
	return map[string]SecurityScheme{
		"BearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "JWT token whose 'sub' claim is the numeric platform user id.",
		},
	}
}

func buildSchemas() map[string]Schema {
	team := Schema{
		Type: "object",
		Properties: map[string]Schema{
			"id_equipo":     {Type: "integer"},
			"nombre_equipo": {Type: "string"},
			"logo":          {Type: "string"},
		},
	}

	return map[string]Schema{
		"ErrorResponse": {
			Type: "object",
			Properties: map[string]Schema{
				"error": {Type: "string", Description: "Human-readable error message"},
			},
			Required: []string{"error"},
		},
		"SuccessMessage": {
			Type: "object",
			Properties: map[string]Schema{
				"message": {Type: "string", Description: "Success message"},
			},
			Required: []string{"message"},
		},
		"SessionResponse": {
			Type: "object",
			Properties: map[string]Schema{
				"session_id": {Type: "string", Format: "uuid"},
				"user_id":    {Type: "integer", Format: "int64"},
				"created_at": {Type: "string", Format: "date-time"},
			},
			Required: []string{"session_id", "user_id", "created_at"},
		},
		"FavouriteStatus": {
			Type: "object",
			Properties: map[string]Schema{
				"match_id":  {Type: "integer", Format: "int64"},
				"favourite": {Type: "boolean"},
				"pending":   {Type: "boolean", Description: "A mutation of this match is in flight"},
			},
			Required: []string{"match_id", "favourite", "pending"},
		},
		"MutationResponse": {
			Type: "object",
			Properties: map[string]Schema{
				"match_id":  {Type: "integer", Format: "int64"},
				"outcome":   {Type: "string", Enum: []string{"added", "removed"}},
				"favourite": {Type: "boolean"},
			},
			Required: []string{"match_id", "outcome", "favourite"},
		},
		"FavouriteRecord": {
			Type:        "object",
			Description: "A user's favourited match, as returned by the backend.",
			Properties: map[string]Schema{
				"id_favorito": {Type: "integer"},
				"id_partido":  {Type: "integer"},
				"id_usuario":  {Type: "integer"},
				"is_active":   {Type: "boolean"},
				"created_at":  {Type: "string", Format: "date-time"},
				"partido":     {Ref: "#/components/schemas/MatchSnapshot"},
			},
			Required: []string{"id_partido", "id_usuario", "is_active", "created_at"},
		},
		"MatchSnapshot": {
			Type:        "object",
			Description: "Denormalised match view embedded in a favourite.",
			Properties: map[string]Schema{
				"id_partido":    {Type: "integer"},
				"dia":           {Type: "string", Format: "date", Example: "2025-05-03"},
				"equipo_local":  team,
				"equipo_visita": team,
				"enlace_fotmob": {Type: "string", Nullable: true},
				"estado": {
					Type: "object",
					Properties: map[string]Schema{
						"id_estado":     {Type: "integer"},
						"nombre_estado": {Type: "string"},
					},
				},
				"liga": {
					Type: "object",
					Properties: map[string]Schema{
						"id_liga":     {Type: "integer"},
						"nombre_liga": {Type: "string"},
						"pais":        {Type: "string"},
					},
				},
				"marcador": {
					Type: "object",
					Properties: map[string]Schema{
						"local":  {Type: "integer"},
						"visita": {Type: "integer"},
					},
				},
			},
			Required: []string{"id_partido", "dia", "equipo_local", "equipo_visita"},
		},
	}
}

// ---------------------------------------------------------------------------
// File writers
// ---------------------------------------------------------------------------

func writeJSON(spec OpenAPI, path string) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func writeYAML(spec OpenAPI, path string) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func main() {
	_, src, _, _ := runtime.Caller(0)
	outDir := filepath.Join(filepath.Join(filepath.Dir(src), "..", ".."), "api")

	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create api/ directory: %v\n", err)
		os.Exit(1)
	}

	spec := buildSpec()

	jsonPath := filepath.Join(outDir, "swagger.json")
	if err := writeJSON(spec, jsonPath); err != nil {
		fmt.Fprintf(os.Stderr, "error writing JSON: %v\n", err)
		os.Exit(1)
	}

	yamlPath := filepath.Join(outDir, "swagger.yaml")
	if err := writeYAML(spec, yamlPath); err != nil {
		fmt.Fprintf(os.Stderr, "error writing YAML: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Swagger specs generated:\n  %s\n  %s\n", jsonPath, yamlPath)
}
