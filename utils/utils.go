package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Commands understood by the command line
var Commands = []string{"serve", "match", "seed", "migrate"}

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	return ParseArgs(os.Args[1:])
}

// ParseArgs does the work of ParseArguments on an explicit argument list
func ParseArgs(argv []string) map[string]string {
	args := make(map[string]string)

	// First, identify the command
	commandIndex := -1
	for i, arg := range argv {
		if isCommand(arg) {
			args["command"] = arg
			commandIndex = i
			break
		}
	}

	// Process all arguments, skipping the command
	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Boolean flag when there is no value or the next token is a flag or the command
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				args[flagName] = argv[i+1]
				i++
			}
		}
	}

	return args
}

func isCommand(arg string) bool {
	for _, c := range Commands {
		if arg == c {
			return true
		}
	}
	return false
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s serve [--config=PATH] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s match --image=PATH [--config=PATH] [--threshold=N] [--debug]\n", os.Args[0])
	fmt.Printf("  %s seed --manifest=PATH [--config=PATH] [--workers=N] [--force] [--debug]\n", os.Args[0])
	fmt.Printf("  %s migrate [--config=PATH]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --config      : Path to YAML config (default: configs/config.yml)\n")
	fmt.Printf("  --image       : Path to the plant image to identify\n")
	fmt.Printf("  --manifest    : Path to the YAML manifest of reference plants\n")
	fmt.Printf("  --threshold   : Maximum Hamming distance, exclusive (default: 10)\n")
	fmt.Printf("  --workers     : Number of images read in parallel while seeding\n")
	fmt.Printf("  --force       : Overwrite plants that already exist by name when seeding\n")
	fmt.Printf("  --debug       : Enable debug logging\n")
	fmt.Printf("  --logfile     : Also write logs to this file\n")
	fmt.Printf("\nEnvironment:\n")
	fmt.Printf("  DB_NAME, DB_USER, DB_PASSWORD, DB_HOST, DB_PORT, DB_DRIVER, DB_PATH, PORT, UPLOAD_FOLDER\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s seed --manifest=reference/plants.yml --debug\n", os.Args[0])
	fmt.Printf("  %s match --image=/path/to/leaf.jpg --threshold=8\n", os.Args[0])
}

// ParseThreshold parses and validates a Hamming distance threshold
func ParseThreshold(thresholdStr string) (int, error) {
	threshold, err := strconv.Atoi(thresholdStr)
	if err != nil || threshold < 1 || threshold > 64 {
		return 0, fmt.Errorf("invalid threshold value '%s', expected an integer between 1 and 64", thresholdStr)
	}
	return threshold, nil
}

// SecureFilename returns a version of filename that is safe to store on a regular
// file system: it is normalised to ASCII, path separators and runs of whitespace
// become underscores, and anything outside [A-Za-z0-9_.-] is removed, along with
// leading and trailing dots and underscores. The result may be empty.
func SecureFilename(filename string) string {
	decomposed := norm.NFKD.String(filename)

	var ascii strings.Builder
	for _, r := range decomposed {
		switch {
		case r == '/' || r == '\\':
			ascii.WriteRune(' ')
		case r < 0x80:
			ascii.WriteRune(r)
		}
	}

	joined := strings.Join(strings.Fields(ascii.String()), "_")

	var safe strings.Builder
	for _, r := range joined {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.' || r == '-' {
			safe.WriteRune(r)
		}
	}

	return strings.Trim(safe.String(), "._")
}
