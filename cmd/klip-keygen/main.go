// Command klip-keygen generates a PSK, an Ed25519 signing keypair, and an
// XChaCha20 encryption key, and prints them as ready-to-edit client,
// server, and hybrid klip.toml stanzas.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lmaotrigine/klip/internal/config"
	"github.com/lmaotrigine/klip/internal/crypto"
	"github.com/lmaotrigine/klip/internal/keygen"
	"github.com/lmaotrigine/klip/internal/password"
)

var flagFromPassphrase bool

var rootCmd = &cobra.Command{
	Use:   "klip-keygen",
	Short: "Generate klip key material",
	RunE:  run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagFromPassphrase, "from-passphrase", false, "derive keys deterministically from a passphrase instead of the OS CSPRNG")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "klip-keygen:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var m keygen.Material
	var err error

	if flagFromPassphrase {
		var pass []byte
		if password.IsTerminal(os.Stdin.Fd()) {
			pass, err = password.PromptConfirm(os.Stderr, os.Stdin.Fd())
		} else {
			pass, err = password.ReadLine(os.Stdin)
		}
		if err != nil {
			return err
		}
		m, err = keygen.GenerateFromPassphrase(crypto.Default, pass)
	} else {
		m, err = keygen.Generate(crypto.Default)
	}
	if err != nil {
		return err
	}

	pskHex := hex.EncodeToString(m.PSK[:])
	signPKHex := hex.EncodeToString(m.SignPK)
	signSKHex := hex.EncodeToString(m.SignSK)
	encryptSKHex := hex.EncodeToString(m.EncryptSK[:])

	fmt.Printf("\n--- Create a klip.toml with only the lines relevant to your role ---\n\n")
	fmt.Printf("# Configuration for a client\n\n")
	fmt.Printf("connect    = %q\t# edit appropriately\n", config.DefaultConnect)
	fmt.Printf("psk        = %q\n", pskHex)
	fmt.Printf("sign_pk    = %q\n", signPKHex)
	fmt.Printf("sign_sk    = %q\n", signSKHex)
	fmt.Printf("encrypt_sk = %q\n\n", encryptSKHex)
	fmt.Printf("# Configuration for a server\n\n")
	fmt.Printf("listen     = %q\t# edit appropriately\n", config.DefaultListen)
	fmt.Printf("psk        = %q\n", pskHex)
	fmt.Printf("sign_pk    = %q\n\n", signPKHex)
	fmt.Printf("# Hybrid configuration (both roles share one process)\n\n")
	fmt.Printf("connect    = %q\t# edit appropriately\n", config.DefaultConnect)
	fmt.Printf("listen     = %q\t# edit appropriately\n", config.DefaultListen)
	fmt.Printf("psk        = %q\n", pskHex)
	fmt.Printf("sign_pk    = %q\n", signPKHex)
	fmt.Printf("sign_sk    = %q\n", signSKHex)
	fmt.Printf("encrypt_sk = %q\n", encryptSKHex)
	return nil
}
