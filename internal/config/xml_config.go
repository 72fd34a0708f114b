// Package config provides XML-based configuration management for air-gapped deployment.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"ScreenplayDashboard"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Security configuration
	Security SecurityConfig `xml:"Security"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains data layout settings
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory"`
	ScriptsDirectory  string `xml:"ScriptsDirectory"`
	AnalysisDirectory string `xml:"AnalysisDirectory"`
	RegistryFile      string `xml:"RegistryFile"`
	CatalogFile       string `xml:"CatalogFile"`
	ArchiveFile       string `xml:"ArchiveFile"`
	EnablePersistence bool   `xml:"EnablePersistence"`
	EnableArchive     bool   `xml:"EnableArchive"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	AllowJobDeletion bool   `xml:"AllowJobDeletion"`
	RequireAuth      bool   `xml:"RequireAuthentication"`
	AuthToken        string `xml:"AuthToken"`
	AllowedFileTypes string `xml:"AllowedFileTypes"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	StaticDirectory      string `xml:"StaticDirectory"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "256M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			ScriptsDirectory:  "./data/scripts",
			AnalysisDirectory: "./data/analysis",
			RegistryFile:      "upload-registry.json",
			CatalogFile:       "categories.yaml",
			ArchiveFile:       "archive.duckdb",
			EnablePersistence: true,
			EnableArchive:     true,
		},
		Security: SecurityConfig{
			AllowJobDeletion: true,
			RequireAuth:      false,
			AuthToken:        "",
			AllowedFileTypes: ".pdf,.txt,.fountain,.fdx",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			StaticDirectory:      "./web/dist",
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &AppConfig{}
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Screenplay Analysis Dashboard Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.ScriptsDirectory = filepath.Join(dataDir, "scripts")
		c.Storage.AnalysisDirectory = filepath.Join(dataDir, "analysis")
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.ScriptsDirectory) {
		c.Storage.ScriptsDirectory = filepath.Join(configDir, c.Storage.ScriptsDirectory)
	}
	if !filepath.IsAbs(c.Storage.AnalysisDirectory) {
		c.Storage.AnalysisDirectory = filepath.Join(configDir, c.Storage.AnalysisDirectory)
	}
	if !filepath.IsAbs(c.Advanced.StaticDirectory) {
		c.Advanced.StaticDirectory = filepath.Join(configDir, c.Advanced.StaticDirectory)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetScriptsDir returns the absolute scripts directory path
func (c *AppConfig) GetScriptsDir() string {
	return c.Storage.ScriptsDirectory
}

// GetAnalysisDir returns the absolute analysis output directory path
func (c *AppConfig) GetAnalysisDir() string {
	return c.Storage.AnalysisDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetRegistryPath returns the registry file path, relative names land in the
// data directory
func (c *AppConfig) GetRegistryPath() string {
	if filepath.IsAbs(c.Storage.RegistryFile) {
		return c.Storage.RegistryFile
	}
	return filepath.Join(c.Storage.DataDirectory, c.Storage.RegistryFile)
}

// GetCatalogPath returns the category catalog file path
func (c *AppConfig) GetCatalogPath() string {
	if filepath.IsAbs(c.Storage.CatalogFile) {
		return c.Storage.CatalogFile
	}
	return filepath.Join(c.Storage.DataDirectory, c.Storage.CatalogFile)
}

// GetArchivePath returns the analysis archive database path
func (c *AppConfig) GetArchivePath() string {
	if filepath.IsAbs(c.Storage.ArchiveFile) {
		return c.Storage.ArchiveFile
	}
	return filepath.Join(c.Storage.DataDirectory, c.Storage.ArchiveFile)
}

// GetAllowedFileTypes returns the allowed upload extensions as a slice
func (c *AppConfig) GetAllowedFileTypes() []string {
	parts := strings.Split(c.Security.AllowedFileTypes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.ScriptsDirectory,
		c.Storage.AnalysisDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
