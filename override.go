package logtree

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyConfigString applies "key=value" overrides on top of the current
// configuration. All overrides are checked before anything is applied.
//
// Example:
//
//	err := reg.ApplyConfigString(
//	    "level=INFO",
//	    "file_path=/var/log/app",
//	    "remote_port=12345",
//	)
func (r *Registry) ApplyConfigString(overrides ...string) error {
	cfg := r.Config()

	var errs []error
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := applyConfigField(cfg, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return combineConfigErrors(errs)
	}
	return r.ApplyConfig(cfg)
}

// parseKeyValue splits "key=value", trimming both sides
func parseKeyValue(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmtErrorf("invalid override '%s' (expected key=value)", s)
	}
	return strings.ToLower(key), strings.TrimSpace(value), nil
}

// combineConfigErrors numbers multiple errors under a single message
func combineConfigErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	var sb strings.Builder
	sb.WriteString("logtree: multiple configuration errors:")
	for i, err := range errs {
		msg := strings.TrimPrefix(err.Error(), "logtree: ")
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, msg)
	}
	return fmt.Errorf("%s", sb.String())
}

func parseIntField(key, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmtErrorf("invalid integer value for %s '%s': %w", key, value, err)
	}
	return n, nil
}

func parseBoolField(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmtErrorf("invalid boolean value for %s '%s': %w", key, value, err)
	}
	return b, nil
}

// applyConfigField sets one field from its string form
func applyConfigField(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "level":
		if _, perr := ParseLevel(value); perr != nil {
			return perr
		}
		cfg.Level = value
	case "date_format":
		cfg.DateFormat = value

	case "console_target":
		cfg.ConsoleTarget = strings.ToLower(value)
	case "console_color":
		cfg.ConsoleColor, err = parseBoolField(key, value)

	case "file_path":
		cfg.FilePath = value
	case "file_format":
		cfg.FileFormat = strings.ToLower(value)
	case "rotate_max_size_mb":
		cfg.RotateMaxSizeMB, err = parseIntField(key, value)
	case "rotate_max_backups":
		cfg.RotateMaxBackups, err = parseIntField(key, value)
	case "rotate_max_age_days":
		cfg.RotateMaxAgeDays, err = parseIntField(key, value)
	case "rotate_compress":
		cfg.RotateCompress, err = parseBoolField(key, value)

	case "remote_host":
		cfg.RemoteHost = value
	case "remote_port":
		cfg.RemotePort, err = parseIntField(key, value)
	case "remote_max_failures":
		cfg.RemoteMaxFailures, err = parseIntField(key, value)
	case "remote_timeout_ms":
		cfg.RemoteTimeoutMs, err = parseIntField(key, value)

	case "receive_port":
		cfg.ReceivePort, err = parseIntField(key, value)
	case "accept_timeout_ms":
		cfg.AcceptTimeoutMs, err = parseIntField(key, value)

	case "sanitize_policy":
		cfg.SanitizePolicy = value

	case "internal_errors_to_stderr":
		cfg.InternalErrorsToStderr, err = parseBoolField(key, value)

	default:
		return fmtErrorf("unknown configuration key '%s'", key)
	}
	return err
}
