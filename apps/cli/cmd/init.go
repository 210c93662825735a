package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hitcase project",
	Long: `Initialize a new hitcase project.

This creates:
  - hitcase.yaml   - Configuration file with environments
  - cases.yaml     - Example scenario: log in, then fetch the profile

Examples:
  hitcase init
  hitcase init --dir ./api-tests --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to initialize")
}

const exampleCases = `# Each case is one step. Steps of a scenario run in ascending step order and
# share variables: values extracted from one response can be used as ${name}
# in the requests of later steps.
cases:
  - case_id: login_001
    scenario: user_flow
    step: 1
    description: log in with the test account
    method: POST
    api: /api/login
    data:
      username: ${username}
      password: ${$TEST_PASSWORD}
    expected:
      code: 200
      data:
        token: "$type:string"
    extract:
      token: data.token

  - case_id: user_info_001
    scenario: user_flow
    step: 2
    description: fetch the profile of the logged in user
    method: GET
    api: /api/user/info
    headers:
      Authorization: Bearer ${token}
    expected:
      code: 200
      data:
        username: ${username}
        id: "$any"
    depends: login_001

  - case_id: login_bad_password
    scenario: login_rejected
    step: 1
    description: wrong password is refused
    method: POST
    api: /api/login
    data:
      username: ${username}
      password: wrong-${randomString(8)}
    status: 401
    expected:
      code: 401
`

func initConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.DefaultEnvironment = "dev"
	cfg.BaseURLs = map[string]string{"default": "http://localhost:3000"}
	cfg.Environments = map[string]*config.Environment{
		"dev": {
			BaseURLs: map[string]string{"default": "http://localhost:3000"},
		},
		"staging": {
			BaseURLs: map[string]string{"default": "https://staging.api.example.com"},
		},
		"prod": {
			BaseURLs: map[string]string{"default": "https://api.example.com"},
		},
	}
	cfg.Retries = 2
	cfg.Cases = []string{"cases.yaml"}
	cfg.Variables = map[string]any{
		"username": "test_user",
	}
	cfg.ReportPath = "reports"
	cfg.LogPath = "logs"
	return cfg
}

func initCommand(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(initDir, 0755); err != nil {
		return err
	}

	configFile := filepath.Join(initDir, "hitcase.yaml")
	casesFile := filepath.Join(initDir, "cases.yaml")

	if !forceInit {
		for _, f := range []string{configFile, casesFile} {
			if _, err := os.Stat(f); err == nil {
				return exitf(ExitUsageError, "file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	if err := initConfig().SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(casesFile, []byte(exampleCases), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", casesFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitcase project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'TEST_PASSWORD=... hitcase run' to execute the example cases.\n")

	return nil
}
