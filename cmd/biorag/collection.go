package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"biorag/internal/app"
	"biorag/internal/config"
	"biorag/internal/domain"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage the vector collection",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the collection sized for the configured embedder",
	Args:  cobra.NoArgs,
	RunE:  runCollectionCreate,
}

var collectionInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Check connectivity and report the collection size",
	Args:  cobra.NoArgs,
	RunE:  runCollectionInfo,
}

var collectionDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the collection and every stored tool",
	Args:  cobra.NoArgs,
	RunE:  runCollectionDrop,
}

func init() {
	collectionCmd.AddCommand(collectionCreateCmd, collectionInfoCmd, collectionDropCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionCreate(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	dim := a.Embedder.Dimension()
	if dim <= 0 {
		dim = config.DefaultEmbeddingDim
	}
	opts, err := app.IngestOptions(a.Config)
	if err != nil {
		return err
	}
	if err := a.Store.CreateCollection(cmd.Context(), dim, opts.Distance); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	cmd.Printf("collection %q ready (%d dimensions, %s)\n", a.Config.Collection(), dim, opts.Distance)
	return nil
}

func runCollectionInfo(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	name := a.Config.Collection()
	exists, err := a.Store.CollectionExists(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if !exists {
		cmd.Printf("collection %q (%s): does not exist\n", name, a.Config.VectorStore.Type)
		return nil
	}
	n, err := a.Store.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("counting points: %w", err)
	}
	cmd.Printf("collection %q (%s): %d tools\n", name, a.Config.VectorStore.Type, n)
	return nil
}

func runCollectionDrop(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.Store.DropCollection(cmd.Context()); err != nil && !errors.Is(err, domain.ErrCollectionMissing) {
		return fmt.Errorf("dropping collection: %w", err)
	}
	cmd.Printf("collection %q dropped\n", a.Config.Collection())
	return nil
}
