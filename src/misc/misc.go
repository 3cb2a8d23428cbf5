// Package misc contains the small helpers shared by the kdbg subcommands
package misc

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrorCheck is a function to throw error to the log and exit the program
func ErrorCheck(msg error) {
	if msg != nil {
		log.Fatalf("terminated\n\nERROR --> %v\n\n", msg)
	}
}

// StartLogging is a function to start the log...
func StartLogging(logFile string) *os.File {
	logPath := strings.Split(logFile, "/")
	joinedLogPath := strings.Join(logPath[:len(logPath)-1], "/")
	if len(logPath) > 1 {
		if _, err := os.Stat(joinedLogPath); os.IsNotExist(err) {
			if err := os.MkdirAll(joinedLogPath, 0700); err != nil {
				log.Fatal("can't create specified directory for log")
			}
		}
	}
	logFH, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}
	return logFH
}

// CheckRequiredFlags is a helper function to check that all required flags have been set
func CheckRequiredFlags(flags *pflag.FlagSet) error {
	requiredError := false
	flagName := ""
	flags.VisitAll(func(flag *pflag.Flag) {
		requiredAnnotation := flag.Annotations[cobra.BashCompOneRequiredFlag]
		if len(requiredAnnotation) == 0 {
			return
		}
		flagRequired := requiredAnnotation[0] == "true"
		if flagRequired && !flag.Changed {
			requiredError = true
			flagName = flag.Name
		}
	})
	if requiredError {
		return errors.New("required flag `" + flagName + "` has not been set")
	}
	return nil
}

// CheckFile is a function to check that a file can be read
func CheckFile(file string) error {
	fi, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %v", file)
		}
		return fmt.Errorf("can't access file (check permissions): %v", file)
	}
	if fi.IsDir() {
		return fmt.Errorf("expected a file, got a directory: %v", file)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("file appears to be empty: %v", file)
	}
	return nil
}

// CheckDir is a function to check that a directory exists
func CheckDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %v", dir)
		}
		return fmt.Errorf("can't access directory (check permissions): %v", dir)
	}
	if !fi.IsDir() {
		return fmt.Errorf("expected a directory, got a file: %v", dir)
	}
	return nil
}

// CheckExt is a function to check the extensions of a file, compression suffixes are ignored
func CheckExt(file string, exts []string) error {
	base := strings.ToLower(filepath.Base(file))
	for _, suffix := range []string{".gz", ".bz2", ".xz", ".lz4", ".sz"} {
		base = strings.TrimSuffix(base, suffix)
	}
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	for _, want := range exts {
		if ext == want {
			return nil
		}
	}
	return fmt.Errorf("file does not have recognised extension (%v): %v", exts, file)
}

// PrepareDir creates the directory if it is not there already
func PrepareDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return errors.Wrapf(err, "can't create directory %v", dir)
		}
	}
	return nil
}
