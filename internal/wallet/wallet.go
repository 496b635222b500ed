// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// ErrNoWallet возвращается, когда не задан ни ключ, ни файл кошельков.
var ErrNoWallet = errors.New("no private key or wallet file configured")

// Wallet представляет кошелёк Solana.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// WalletConfig represents the structure of wallets YAML file
type WalletConfig struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

// LoadWallets загружает кошельки из YAML-файла.
func LoadWallets(path string) (map[string]*Wallet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config WalletConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	wallets := make(map[string]*Wallet)
	for _, walletData := range config.Wallets {
		if walletData.Name == "" || walletData.PrivateKey == "" {
			continue
		}
		w, err := NewWallet(walletData.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", walletData.Name, err)
		}
		wallets[walletData.Name] = w
	}

	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets in %s", path)
	}
	return wallets, nil
}

// Load выбирает кошелёк: явный ключ имеет приоритет над файлом.
// Пустое name допустимо, если в файле ровно один кошелёк.
func Load(privateKey, walletFile, name string) (*Wallet, error) {
	if privateKey != "" {
		return NewWallet(privateKey)
	}
	if walletFile == "" {
		return nil, ErrNoWallet
	}

	wallets, err := LoadWallets(walletFile)
	if err != nil {
		return nil, err
	}
	if name != "" {
		w, ok := wallets[name]
		if !ok {
			return nil, fmt.Errorf("wallet %q not found in %s", name, walletFile)
		}
		return w, nil
	}
	if len(wallets) > 1 {
		return nil, fmt.Errorf("%s holds %d wallets, set wallet_name", walletFile, len(wallets))
	}
	for _, w := range wallets {
		return w, nil
	}
	return nil, ErrNoWallet
}

// SignTransaction подписывает транзакцию с помощью приватного ключа кошелька.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
