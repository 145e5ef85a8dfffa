package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yildizm/dlgen/internal/formatter"
)

// printReport renders report in the selected output format to stdout
func printReport(report *formatter.Report) error {
	output, err := formatter.Get(getOutputFormat(), useColor()).Format(report)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return handleOutputDestination(output, "")
}

// handleOutputDestination writes output to path, or to stdout when path is empty
func handleOutputDestination(output []byte, path string) error {
	if path == "" {
		fmt.Print(string(output))
		return nil
	}

	if err := validateOutputFilePath(path); err != nil {
		return fmt.Errorf("invalid output file path: %w", err)
	}
	if err := writeOutputBytesToFile(output, path); err != nil {
		return fmt.Errorf("failed to write output to file: %w", err)
	}
	if isVerbose() {
		fmt.Fprintf(os.Stderr, "Output saved to: %s\n", path)
	}
	return nil
}

func validateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", cleanPath)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", cleanPath)
	}

	return nil
}

func validateOutputFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}
	info, err := os.Stat(filepath.Clean(path))
	if err == nil && info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	return nil
}

func writeOutputBytesToFile(output []byte, filePath string) error {
	cleanPath := filepath.Clean(filePath)

	file, err := os.Create(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && isVerbose() {
			fmt.Fprintf(os.Stderr, "Warning: failed to close output file: %v\n", closeErr)
		}
	}()

	if _, err := file.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	// Sync to ensure data is written
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}

	return nil
}

// status prints a one-line status message with an emoji prefix
func status(key, format string, args ...interface{}) {
	fmt.Printf("%s %s\n", GetEmoji(key), fmt.Sprintf(format, args...))
}
