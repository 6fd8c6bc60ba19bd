package engine

import (
	"fmt"
	"os"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := deckFileChecks(serverHandler.ServerConfig.DeckPath); err != nil {
		return err
	}
	deckContentChecks(serverHandler)
	return nil
}

// deckFileChecks makes sure the deck file exists and is a regular file
func deckFileChecks(deckPath string) error {
	if deckPath == "" {
		Logger.Error("Deck path not configured")
		return fmt.Errorf("deck path not configured")
	}

	deckInfo, err := os.Stat(deckPath)
	if err != nil {
		Logger.Error("Deck file not found", "path", deckPath, "error", err)
		return err
	}
	if deckInfo.IsDir() {
		Logger.Error("Deck path is a directory, not a file", "path", deckPath)
		return fmt.Errorf("deck path is a directory: %s", deckPath)
	}

	Logger.Info("Deck file found", "path", deckPath, "size", deckInfo.Size())
	return nil
}

// deckContentChecks sanity checks the opened deck
func deckContentChecks(serverHandler *ServerHandler) {
	pageCount := serverHandler.Deck.PageCount()
	if pageCount == 0 {
		Logger.Warn("Deck has no pages, every slide request will return 404")
		return
	}

	width := serverHandler.Deck.PageWidth()
	height := serverHandler.Deck.PageHeight()
	if width <= 0 || height <= 0 {
		Logger.Warn("Deck reports a degenerate page size", "width", width, "height", height)
		return
	}

	Logger.Info("Deck opened", "pages", pageCount, "pageWidth", width, "pageHeight", height)
}
