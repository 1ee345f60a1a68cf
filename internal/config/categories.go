package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Categories maps a category name to the feed uids it groups.
type Categories map[string][]string

type categoriesFile struct {
	Categories Categories `yaml:"categories"`
}

// LoadCategories reads a categories YAML file and validates it.
func LoadCategories(path string) (Categories, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("categories file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}

	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	if err := validateCategories(f.Categories); err != nil {
		return nil, fmt.Errorf("validate categories: %w", err)
	}

	return f.Categories, nil
}

func validateCategories(c Categories) error {
	if len(c) == 0 {
		return errors.New("categories: at least one category is required")
	}
	for name, feeds := range c {
		if strings.TrimSpace(name) == "" {
			return errors.New("categories: name must not be empty")
		}
		if len(feeds) == 0 {
			return fmt.Errorf("categories.%s: at least one feed uid is required", name)
		}
		for i, uid := range feeds {
			uid = strings.TrimSpace(uid)
			if uid == "" {
				return fmt.Errorf("categories.%s[%d]: feed uid must not be empty", name, i)
			}
			feeds[i] = uid
		}
	}
	return nil
}

// Names returns the category names in sorted order.
func (c Categories) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownFeeds returns the feed uids referenced by a category but missing
// from feeds, sorted and without repeats.
func (c Categories) UnknownFeeds(feeds []string) []string {
	known := make(map[string]bool, len(feeds))
	for _, f := range feeds {
		known[f] = true
	}
	seen := make(map[string]bool)
	var unknown []string
	for _, members := range c {
		for _, uid := range members {
			if !known[uid] && !seen[uid] {
				seen[uid] = true
				unknown = append(unknown, uid)
			}
		}
	}
	sort.Strings(unknown)
	return unknown
}
