// Package confloader reads imrelay configuration with koanf and reports
// when the configuration file changes.
//
// Later sources override earlier ones:
//
//  1. Defaults already present in the target struct
//  2. The YAML file
//  3. IMRELAY_SECTION_KEY environment variables
//  4. Command-line flags
package confloader
