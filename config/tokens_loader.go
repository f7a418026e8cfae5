package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/prism-swap/orchestrator/models"
)

// LoadTokensFile reads the known-token table and converts it to the
// model type used by the token registry.
func LoadTokensFile(filePath string) ([]models.TokenMetadata, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}

	var file TokensFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tokens file: %w", err)
	}
	if len(file.Tokens) == 0 {
		return nil, fmt.Errorf("no tokens in file")
	}

	metas := make([]models.TokenMetadata, len(file.Tokens))
	for i, entry := range file.Tokens {
		if entry.ID == "" || entry.Symbol == "" {
			return nil, fmt.Errorf("token entry %d missing id or symbol", i)
		}
		metas[i] = models.TokenMetadata{
			ID:       entry.ID,
			Symbol:   entry.Symbol,
			Name:     entry.Name,
			Decimals: entry.Decimals,
			IconURI:  entry.IconURI,
		}
	}
	return metas, nil
}

// WriteTokensFile renders a known-token table back to TOML; used by the
// gentokens command.
func WriteTokensFile(filePath string, metas []models.TokenMetadata) error {
	file := TokensFile{Tokens: make([]TokenEntry, len(metas))}
	for i, meta := range metas {
		file.Tokens[i] = TokenEntry{
			ID:       meta.ID,
			Symbol:   meta.Symbol,
			Name:     meta.Name,
			Decimals: meta.Decimals,
			IconURI:  meta.IconURI,
		}
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to render tokens file: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tokens file: %w", err)
	}
	return nil
}
