package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vladg14/libbitcoin-database/pkg/config"
	"github.com/vladg14/libbitcoin-database/pkg/txdb"
)

var (
	initHeapPath  string
	initIndexPath string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new, empty transaction database heap and index",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initHeapPath, "heap", "", "path to the heap file to create (overrides config)")
	initCmd.Flags().StringVar(&initIndexPath, "index", "", "path to the hash index directory to create (overrides config)")
}

func runInit(cmd *cobra.Command, args []string) error {
	heap, index, err := resolvePaths()
	if err != nil {
		return err
	}

	db, err := txdb.Create(txdb.Config{HeapPath: heap, IndexPath: index})
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	defer db.Close()

	cmd.Printf("Initialized transaction database\n  heap:  %s\n  index: %s\n", heap, index)
	return nil
}

// resolvePaths applies the same precedence pkg/config documents: explicit
// CLI flags beat the loaded config file.
func resolvePaths() (heap, index string, err error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return "", "", fmt.Errorf("load config: %w", err)
	}

	heap, index = cfg.Database.HeapPath, cfg.Database.IndexPath
	if initHeapPath != "" {
		heap = initHeapPath
	}
	if initIndexPath != "" {
		index = initIndexPath
	}
	if heap == "" || index == "" {
		return "", "", fmt.Errorf("both --heap and --index are required (or set database.heap_path/index_path in %s)", config.GetDefaultConfigPath())
	}
	return heap, index, nil
}
