package engine

import (
	"encoding/json"
	"fmt"
)

// EntityConfig parameterizes the generic effect handler for one entity. The
// per-entity knobs capture the behavioural differences the console preserves:
// insertion convention, delete verb, client-side guards and count sourcing.
type EntityConfig[T any] struct {
	// Name is the trigger namespace, e.g. "country".
	Name string
	// Path is the upstream REST segment, e.g. "countries".
	Path string
	// KeyOf extracts the identity key used for replace/delete by key.
	KeyOf func(T) string
	// PrependOnCreate front-inserts created items (newest-first grids).
	PrependOnCreate bool
	// DeleteVerb is http.MethodDelete for hard deletes or http.MethodPatch
	// for entities whose delete is a soft hide upstream.
	DeleteVerb string
	// GuardDelete, when set, may refuse a delete before the delete request
	// is issued. The target is looked up in local state, or fetched from
	// upstream when state is cold, so the guard always sees the document.
	GuardDelete func(item T) error
	// HasCountEndpoint selects GET {path}/count; otherwise count is derived
	// client-side from the list length via a full list fetch.
	HasCountEndpoint bool
	// FileFields lists payload fields that carry a base64 upload; when one is
	// present in a create payload the request is encoded as multipart.
	FileFields []string
}

// Validate checks the config is complete enough to register.
func (c EntityConfig[T]) Validate() error {
	if c.Name == "" || c.Path == "" {
		return fmt.Errorf("entity config requires name and path")
	}
	if c.KeyOf == nil {
		return fmt.Errorf("entity config %s requires a key extractor", c.Name)
	}
	return nil
}

// listEnvelope mirrors the upstream's loose list response. The upstream is
// not uniform across entities: some wrap in {data, total}, some return a bare
// array.
type listEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Total *int            `json:"total"`
	Count *int            `json:"count"`
}

// unwrapList decodes a list response preferring the data envelope, falling
// back to a bare array.
func unwrapList[T any](raw json.RawMessage) ([]T, *int, error) {
	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		var items []T
		if err := json.Unmarshal(env.Data, &items); err == nil {
			total := env.Total
			if total == nil {
				total = env.Count
			}
			return items, total, nil
		}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("unexpected list payload shape")
	}
	return items, nil, nil
}

// unwrapItem decodes a single-item response preferring the data envelope,
// falling back to the raw body.
func unwrapItem[T any](raw json.RawMessage) (T, error) {
	var zero T
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		var item T
		if err := json.Unmarshal(env.Data, &item); err == nil {
			return item, nil
		}
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return zero, fmt.Errorf("unexpected item payload shape")
	}
	return item, nil
}

// unwrapCount decodes a count response: {count}, {data:{count}} or a bare
// number.
func unwrapCount(raw json.RawMessage) (int, error) {
	var direct struct {
		Count *int `json:"count"`
		Total *int `json:"total"`
		Data  *struct {
			Count *int `json:"count"`
			Total *int `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &direct); err == nil {
		if direct.Count != nil {
			return *direct.Count, nil
		}
		if direct.Total != nil {
			return *direct.Total, nil
		}
		if direct.Data != nil {
			if direct.Data.Count != nil {
				return *direct.Data.Count, nil
			}
			if direct.Data.Total != nil {
				return *direct.Data.Total, nil
			}
		}
	}
	var bare int
	if err := json.Unmarshal(raw, &bare); err != nil {
		return 0, fmt.Errorf("unexpected count payload shape")
	}
	return bare, nil
}
