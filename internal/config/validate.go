package config

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validate() []string {
	var errs []string

	// server
	if u, err := url.Parse(c.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "server.url must be an http or https URL with a host")
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		errs = append(errs, "server.wsPath must start with /")
	}
	if c.Server.TimeoutS < 0 {
		errs = append(errs, "server.timeoutSeconds must be non-negative")
	}

	// chat
	if c.Chat.LockTimeoutS < 0 {
		errs = append(errs, "chat.lockTimeoutSeconds must be non-negative")
	}
	if c.Chat.ScrollPolicy != ScrollAlways && c.Chat.ScrollPolicy != ScrollSticky {
		errs = append(errs, fmt.Sprintf("chat.scrollPolicy must be %q or %q", ScrollAlways, ScrollSticky))
	}
	if c.Chat.DefaultBot < 0 {
		errs = append(errs, "chat.defaultBot must be non-negative")
	}

	// bots
	seen := make(map[int]bool, len(c.Bots))
	for i, b := range c.Bots {
		if seen[b.ID] {
			errs = append(errs, fmt.Sprintf("bots[%d].id %d is duplicated", i, b.ID))
		}
		seen[b.ID] = true
	}

	// log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "log.level must be debug, info, warn or error")
	}
	if c.Log.MaxSizeMB < 0 {
		errs = append(errs, "log.maxSizeMB must be non-negative")
	}
	if c.Log.MaxBackups < 0 {
		errs = append(errs, "log.maxBackups must be non-negative")
	}

	// devServer
	if c.DevServer.ReplyDelayMs < 0 {
		errs = append(errs, "devServer.replyDelayMs must be non-negative")
	}

	return errs
}

// CheckUnknownFields walks the raw config map and returns paths of any keys
// that do not correspond to known Config struct fields.
func CheckUnknownFields(raw map[string]any) []string {
	result := checkUnknownFields(raw, reflect.TypeOf(Config{}), "")
	sort.Strings(result)
	return result
}

func checkUnknownFields(data any, t reflect.Type, prefix string) []string {
	t = derefType(t)

	switch t.Kind() {
	case reflect.Slice:
		items, ok := data.([]any)
		if !ok {
			return nil
		}
		var unknown []string
		for i, item := range items {
			unknown = append(unknown, checkUnknownFields(item, t.Elem(), fmt.Sprintf("%s[%d]", prefix, i))...)
		}
		return unknown

	case reflect.Struct:
		m, ok := data.(map[string]any)
		if !ok {
			return nil
		}
		known := jsonFieldMap(t)
		var unknown []string
		for key, val := range m {
			ft, ok := known[key]
			if !ok {
				unknown = append(unknown, joinPath(prefix, key))
				continue
			}
			unknown = append(unknown, checkUnknownFields(val, ft, joinPath(prefix, key))...)
		}
		return unknown

	default:
		return nil
	}
}

func jsonFieldMap(t reflect.Type) map[string]reflect.Type {
	m := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name != "" {
			m[name] = f.Type
		}
	}
	return m
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
