// Package config loads interpreter settings from project and user config files.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/thomasrohde/minischeme/pkg/evaluator"
	"github.com/thomasrohde/minischeme/pkg/heap"
	"github.com/thomasrohde/minischeme/pkg/runtime"
)

// ProjectFile is the config file name looked up in the project directory.
const ProjectFile = ".minischeme.json"

// File represents the JSON structure of a config file. Unset fields keep
// the runtime defaults.
type File struct {
	GCThreshold *int     `json:"gcThreshold,omitempty"`
	GCGrowth    *float64 `json:"gcGrowth,omitempty"`
	GCStress    *bool    `json:"gcStress,omitempty"`
	MaxDepth    *int     `json:"maxDepth,omitempty"`
	ArityCheck  *bool    `json:"arityCheck,omitempty"`
	RunID       string   `json:"runId,omitempty"`
}

// Load reads settings from project and user config files.
// Precedence: project (.minischeme.json) → user (~/.minischeme/config.json)
// → defaults. The returned path is empty when no file was found.
func Load(projectDir string) (*File, string) {
	projectPath := filepath.Join(projectDir, ProjectFile)
	if f, err := loadFile(projectPath); err == nil {
		return f, projectPath
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(homeDir, ".minischeme", "config.json")
		if f, err := loadFile(userPath); err == nil {
			return f, userPath
		}
	}

	return &File{}, ""
}

func loadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// RuntimeOptions converts the settings into runtime options. Options
// appended after these override them.
func (f *File) RuntimeOptions() []runtime.Option {
	var heapOpts []heap.Option
	var evalOpts []evaluator.Option
	if f.GCThreshold != nil {
		heapOpts = append(heapOpts, heap.WithThreshold(*f.GCThreshold))
	}
	if f.GCGrowth != nil {
		heapOpts = append(heapOpts, heap.WithGrowth(*f.GCGrowth))
	}
	if f.GCStress != nil {
		heapOpts = append(heapOpts, heap.WithStress(*f.GCStress))
	}
	if f.MaxDepth != nil {
		evalOpts = append(evalOpts, evaluator.WithMaxDepth(*f.MaxDepth))
	}
	if f.ArityCheck != nil {
		evalOpts = append(evalOpts, evaluator.WithArityCheck(*f.ArityCheck))
	}

	opts := []runtime.Option{
		runtime.WithHeapOptions(heapOpts...),
		runtime.WithEvaluatorOptions(evalOpts...),
	}
	if f.RunID != "" {
		opts = append(opts, runtime.WithRunID(f.RunID))
	}
	return opts
}
