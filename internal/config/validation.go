package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// RegisterValidation only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("cronspec", validateCronSpec)
	_ = v.RegisterValidation("locale", validateLocale)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

// validateCronSpec accepts standard five-field cron expressions and descriptors.
func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateLocale accepts BCP 47 language tags such as "fr-CA".
func validateLocale(fl validator.FieldLevel) bool {
	_, err := language.Parse(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	seen := make(map[string]string, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		s := p.Slug()
		if s == "" {
			return fmt.Errorf("platform name %q has no usable characters", p.Name)
		}
		if other, ok := seen[s]; ok {
			return fmt.Errorf("platform names %q and %q are not distinct", other, p.Name)
		}
		seen[s] = p.Name
	}

	if cfg.UsesPostgres() {
		var missing []string
		if cfg.Database.Host == "" {
			missing = append(missing, "host")
		}
		if cfg.Database.Port == 0 {
			missing = append(missing, "port")
		}
		if cfg.Database.Name == "" {
			missing = append(missing, "name")
		}
		if cfg.Database.User == "" {
			missing = append(missing, "user")
		}
		if len(missing) > 0 {
			return fmt.Errorf("postgres driver requires database %s", strings.Join(missing, ", "))
		}
		if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	}

	if cfg.Publish.Enabled && cfg.Publish.URL == "" {
		return fmt.Errorf("publish.url is required when publishing is enabled")
	}

	if cfg.Secrets.Enabled && (cfg.Secrets.Region == "" || cfg.Secrets.SecretName == "") {
		return fmt.Errorf("secrets.region and secrets.secret_name are required when secrets are enabled")
	}

	if cfg.IsProduction() {
		if cfg.UsesPostgres() && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
		if cfg.Database.Driver == "memory" {
			return fmt.Errorf("production environment requires the postgres driver")
		}
	}

	return nil
}

var tagMessages = map[string]string{
	"required":    "is required",
	"url":         "must be a valid URL",
	"environment": "must be one of: development, staging, production",
	"loglevel":    "must be one of: debug, info, warn, error",
	"cronspec":    "must be a cron expression",
	"locale":      "must be a language tag",
	"datetime":    "must be a date (YYYY-MM-DD)",
	"oneof":       "has an invalid value",
}

// formatValidationErrors lists every failed field, one per line.
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fe := range validationErrors {
		msg, ok := tagMessages[fe.Tag()]
		switch {
		case ok:
		case fe.Param() != "":
			msg = fmt.Sprintf("violates %s=%s", fe.Tag(), fe.Param())
		default:
			msg = "failed validation: " + fe.Tag()
		}
		fmt.Fprintf(&b, "- Field '%s' %s", fe.StructField(), msg)
		if fe.Tag() != "required" {
			fmt.Fprintf(&b, ", got '%v'", fe.Value())
		}
		b.WriteByte('\n')
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.UsesPostgres() && isTestCredential(cfg.Database.User) {
			return fmt.Errorf("production environment should not use test database credentials")
		}
		if cfg.Publish.Enabled && isTestCredential(cfg.Publish.Secret) {
			return fmt.Errorf("production environment should not use a test publish secret")
		}
	}

	if cfg.IsDevelopment() && cfg.Secrets.Enabled {
		return fmt.Errorf("AWS secrets should be disabled in development mode")
	}

	return nil
}

var testCredential = regexp.MustCompile(`(?i)test|demo|example|placeholder|your_`)

func isTestCredential(credential string) bool {
	return testCredential.MatchString(credential)
}
