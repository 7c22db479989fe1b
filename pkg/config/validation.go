package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus the custom
// rules that tags cannot express.
//
// Log level normalization happens in ApplyDefaults; validation accepts
// both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Native.Type == "badger" {
		dir, _ := cfg.Native.Badger["dir"].(string)
		if dir == "" {
			return fmt.Errorf("native.badger: dir is required when native.type is badger")
		}
	}

	if cfg.Native.Content.Type == "s3" {
		bucket, _ := cfg.Native.Content.S3["bucket"].(string)
		if bucket == "" {
			return fmt.Errorf("native.content.s3: bucket is required when content type is s3")
		}
		region, _ := cfg.Native.Content.S3["region"].(string)
		if region == "" {
			return fmt.Errorf("native.content.s3: region is required when content type is s3")
		}
	}

	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
