package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todoapi/internal/pkg/metrics"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://todoapi.local/schemas/"

// 请求体 schema 名称，对应 schemas/ 下的文件。
const (
	schemaTaskCreate = "task_create"
	schemaTaskUpdate = "task_update"
	schemaUserCreate = "user_create"
	schemaUserUpdate = "user_update"
)

// fieldError 是 422 响应中的单条错误。
type fieldError struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// validationError 请求校验失败，Detail 按 loc 排序。
type validationError struct {
	Detail []fieldError
}

func (e *validationError) Error() string {
	parts := make([]string, 0, len(e.Detail))
	for _, d := range e.Detail {
		parts = append(parts, fmt.Sprintf("%v: %s", d.Loc, d.Msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type schemaSet struct {
	schemas map[string]*jsonschema.Schema
}

// loadSchemas 编译内嵌的全部 schema。
func loadSchemas() (*schemaSet, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true

	names := []string{schemaTaskCreate, schemaTaskUpdate, schemaUserCreate, schemaUserUpdate}
	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaBaseURL+name+".json", bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	set := &schemaSet{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		sch, err := compiler.Compile(schemaBaseURL + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		set.schemas[name] = sch
	}
	return set, nil
}

// decode 校验 body 并解码到 dst。body 必须是 JSON 对象。
func (s *schemaSet) decode(name string, body []byte, dst interface{}) error {
	sch, ok := s.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return s.fail(name, fieldError{Loc: []interface{}{"body"}, Msg: "invalid JSON body", Type: "json_invalid"})
	}

	var details []fieldError
	if obj, ok := doc.(map[string]interface{}); ok {
		for _, field := range sch.Required {
			if _, present := obj[field]; !present {
				details = append(details, fieldError{
					Loc:  []interface{}{"body", field},
					Msg:  "field required",
					Type: "missing",
				})
			}
		}
	}

	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return fmt.Errorf("validate %s: %w", name, err)
		}
		collectFieldErrors(ve, &details)
	}

	if len(details) > 0 {
		return s.fail(name, details...)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return s.fail(name, fieldError{Loc: []interface{}{"body"}, Msg: err.Error(), Type: "value_error"})
	}
	return nil
}

func (s *schemaSet) fail(name string, details ...fieldError) *validationError {
	metrics.ValidationFailuresTotal.WithLabelValues(name).Inc()
	sort.SliceStable(details, func(i, j int) bool {
		return locString(details[i].Loc) < locString(details[j].Loc)
	})
	return &validationError{Detail: details}
}

// collectFieldErrors 收集叶子错误。required 已由调用方按字段展开，这里跳过。
func collectFieldErrors(err *jsonschema.ValidationError, out *[]fieldError) {
	if err == nil {
		return
	}
	if len(err.Causes) > 0 {
		for _, cause := range err.Causes {
			collectFieldErrors(cause, out)
		}
		return
	}

	keyword := err.KeywordLocation
	if i := strings.LastIndexByte(keyword, '/'); i >= 0 {
		keyword = keyword[i+1:]
	}
	if keyword == "required" {
		return
	}

	*out = append(*out, fieldError{
		Loc:  pointerToLoc(err.InstanceLocation),
		Msg:  err.Message,
		Type: errorType(keyword),
	})
}

func pointerToLoc(ptr string) []interface{} {
	loc := []interface{}{"body"}
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return loc
	}
	for _, seg := range strings.Split(ptr, "/") {
		seg = strings.ReplaceAll(seg, "~1", "/")
		seg = strings.ReplaceAll(seg, "~0", "~")
		loc = append(loc, seg)
	}
	return loc
}

func errorType(keyword string) string {
	switch keyword {
	case "maxLength":
		return "string_too_long"
	case "minLength":
		return "string_too_short"
	case "type":
		return "type_error"
	case "enum":
		return "enum"
	case "format":
		return "value_error"
	default:
		return keyword
	}
}

func locString(loc []interface{}) string {
	parts := make([]string, len(loc))
	for i, p := range loc {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ".")
}
