package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a master encryption key",
	Long:  `Generates a 256-bit master key for encrypting wallet secrets at rest. Store it in HONGBAO_MASTER_KEY and never commit it.`,
	Run:   runGenkey,
}

func init() {
	rootCmd.AddCommand(genkeyCmd)
}

func runGenkey(cmd *cobra.Command, args []string) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		initLogger(slog.LevelInfo)
		slog.Error("Failed to generate key", "error", err)
		os.Exit(1)
	}

	encoded := hex.EncodeToString(key)
	if len(encoded) != 64 {
		initLogger(slog.LevelInfo)
		slog.Error("Generated key has unexpected length", "length", len(encoded))
		os.Exit(1)
	}
	fmt.Println(encoded)
}
