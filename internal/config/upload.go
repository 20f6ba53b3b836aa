package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// UploadPolicy bounds what the service accepts as a product image.
// Checks are advisory: they apply to client-declared metadata, not a
// re-parse of the file contents.
type UploadPolicy struct {
	MaxBytes          int64  `mapstructure:"maxBytes"`
	AcceptContentType string `mapstructure:"acceptContentType"`
}

func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxBytes:          5 * 1024 * 1024,
		AcceptContentType: "image/",
	}
}

// UploadPolicyHolder serves the current policy and swaps it atomically
// when the config file changes on disk.
type UploadPolicyHolder struct {
	current atomic.Value // holds UploadPolicy
}

func NewUploadPolicyHolder() (*UploadPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("catalog")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/catalog")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultUploadPolicy()
	v.SetDefault("upload.maxBytes", defaults.MaxBytes)
	v.SetDefault("upload.acceptContentType", defaults.AcceptContentType)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy UploadPolicy
	if err := v.UnmarshalKey("upload", &policy); err != nil {
		return nil, err
	}
	if err := validateUploadPolicy(policy); err != nil {
		return nil, err
	}

	holder := &UploadPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated UploadPolicy
		if err := v.UnmarshalKey("upload", &updated); err != nil {
			log.Printf("[upload-policy] reload failed: %v", err)
			return
		}
		if err := validateUploadPolicy(updated); err != nil {
			log.Printf("[upload-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[upload-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *UploadPolicyHolder) Get() UploadPolicy {
	return h.current.Load().(UploadPolicy)
}

// NewStaticUploadPolicyHolder wraps a fixed policy, for tests.
func NewStaticUploadPolicyHolder(policy UploadPolicy) *UploadPolicyHolder {
	holder := &UploadPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validateUploadPolicy(policy UploadPolicy) error {
	if policy.MaxBytes <= 0 {
		return errors.New("upload.maxBytes must be positive")
	}
	if strings.TrimSpace(policy.AcceptContentType) == "" {
		return errors.New("upload.acceptContentType cannot be empty")
	}
	return nil
}
