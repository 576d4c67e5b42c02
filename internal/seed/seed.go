// internal/seed/seed.go

// Package seed loads loan policies, fixed due date schedules and circulation
// rules from JSON or YAML files into the store.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"libracirc/internal/platform/logger"
	"libracirc/internal/policy"
	"libracirc/internal/rules"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind is the type of a seed document.
type Kind string

const (
	KindLoanPolicy Kind = "loan-policy"
	KindSchedule   Kind = "fixed-due-date-schedule"
	KindRule       Kind = "circulation-rule"
)

// Sink stores seed documents. *storage.Store satisfies it.
type Sink interface {
	SaveLoanPolicy(ctx context.Context, raw []byte) (policy.Document, error)
	SaveFixedDueDateSchedule(ctx context.Context, raw []byte) (policy.ScheduleDocument, error)
	SaveRule(ctx context.Context, r rules.Rule) error
}

// Summary counts the documents loaded per kind.
type Summary map[Kind]int

// LoadDir walks fsys and loads every .json, .yaml and .yml file in name order.
// YAML files may hold several documents separated by ---.
func LoadDir(ctx context.Context, fsys fs.FS, sink Sink) (Summary, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(path.Ext(p)) {
		case ".json", ".yaml", ".yml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk seed directory: %w", err)
	}
	sort.Strings(files)

	sum := Summary{}
	for _, name := range files {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return sum, fmt.Errorf("read %s: %w", name, err)
		}
		docs, err := documents(name, raw)
		if err != nil {
			return sum, fmt.Errorf("%s: %w", name, err)
		}
		for i, doc := range docs {
			kind, err := Load(ctx, sink, doc)
			if err != nil {
				return sum, fmt.Errorf("%s document %d: %w", name, i, err)
			}
			sum[kind]++
		}
		logger.C(ctx).Debug().Str("file", name).Int("documents", len(docs)).Msg("seed file loaded")
	}
	return sum, nil
}

// Load classifies one JSON document and saves it.
func Load(ctx context.Context, sink Sink, raw []byte) (Kind, error) {
	kind, err := Classify(raw)
	if err != nil {
		return "", err
	}
	switch kind {
	case KindSchedule:
		_, err = sink.SaveFixedDueDateSchedule(ctx, raw)
	case KindRule:
		var r rules.Rule
		if err = json.Unmarshal(raw, &r); err != nil {
			return "", fmt.Errorf("decode circulation rule: %w", err)
		}
		err = sink.SaveRule(ctx, r)
	default:
		_, err = sink.SaveLoanPolicy(ctx, raw)
	}
	if err != nil {
		return "", fmt.Errorf("save %s: %w", kind, err)
	}
	return kind, nil
}

// Classify tells schedules (a schedules field) and rules (a loanPolicyId field)
// apart from loan policies.
func Classify(raw []byte) (Kind, error) {
	var probe map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", policy.ErrInvalidDocument, err)
	}
	switch {
	case probe["schedules"] != nil:
		return KindSchedule, nil
	case probe["loanPolicyId"] != nil:
		return KindRule, nil
	default:
		return KindLoanPolicy, nil
	}
}

func documents(name string, raw []byte) ([][]byte, error) {
	if strings.EqualFold(path.Ext(name), ".json") {
		return [][]byte{raw}, nil
	}

	var out [][]byte
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	for {
		var v map[string]any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if v == nil {
			continue
		}
		doc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("convert yaml to json: %w", err)
		}
		out = append(out, doc)
	}
}
