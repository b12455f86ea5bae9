// Package fixture owns the request fixture handed to the signing routine.
//
// A fixture is an immutable (query, identity) pair. Both strings are opaque:
// nothing here parses the query string or the user agent.
package fixture

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/signoracle/internal/canon"
)

//go:embed schema.cue
var schemaCUE string

// Fixture is one deterministic test input.
type Fixture struct {
	// Name labels the fixture in logs and ledger entries.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Query is the URL-encoded parameter string.
	Query string `yaml:"query" json:"query"`

	// Identity is the browser-identity (user agent) string.
	Identity string `yaml:"identity" json:"identity"`
}

const (
	defaultQuery = "device_platform=webapp&aid=6383&channel=channel_pc_web&update_version_code=170400&pc_client_type=1&version_code=170400&version_name=17.4.0&cookie_enabled=true&screen_width=1536&screen_height=864&browser_language=zh-CN&browser_platform=Win32&browser_name=Chrome&browser_version=123.0.0.0&browser_online=true&engine_name=Blink&engine_version=123.0.0.0&os_name=Windows&os_version=10&cpu_core_num=16&device_memory=8&platform=PC&downlink=10&effective_type=4g&round_trip_time=50&webid=7362810250930783783&msToken=VkDUvz1y24CppXSl80iFPr6ez-3FiizcwD7fI1OqBt6IICq9RWG7nCvxKb8IVi55mFd-wnqoNkXGnxHrikQb4PuKob5Q-YhDp5Um215JzlBszkUyiEvR"

	defaultIdentity = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// Default returns the built-in fixture: a web detail request issued by
// Chrome 123 on Windows 10.
func Default() Fixture {
	return Fixture{
		Name:     "webapp-detail",
		Query:    defaultQuery,
		Identity: defaultIdentity,
	}
}

// Load reads a fixture from a YAML file.
// Unknown fields are rejected, and the result must satisfy the #Fixture
// schema (non-empty query and identity).
func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML fixture document.
func Parse(data []byte) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("failed to parse fixture YAML: %w", err)
	}
	if err := Validate(f); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// Validate checks f against the embedded CUE schema.
func Validate(f Fixture) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling fixture schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Fixture"))
	val := def.Unify(ctx.Encode(f))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid fixture: %w", err)
	}
	return nil
}

// Digest identifies the fixture by its raw bytes. Query and identity are
// opaque: they are hashed as given, without Unicode normalization. The name
// is excluded, renaming a fixture does not change what the signing routine
// sees.
func Digest(f Fixture) (string, error) {
	return canon.DigestFields(canon.DomainFixture, []byte(f.Query), []byte(f.Identity)), nil
}
