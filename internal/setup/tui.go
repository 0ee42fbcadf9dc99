package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

type generatedConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	BalanceURL    string        `yaml:"balance_url"`
	DataDir       string        `yaml:"data_dir"`
	WebAddr       string        `yaml:"web_addr,omitempty"`
}

// RunTUI launches the terminal configuration wizard. It writes
// config.gen.yaml and, when a token is entered, a .env file next to it.
func RunTUI() error {
	var (
		token            string
		checkIntervalStr string
		fetchTimeoutStr  string
		balanceURL       string
		dataDir          string
		webEnabled       bool
		webAddr          string
		confirm          bool
	)

	// defaults
	checkIntervalStr = "5m"
	fetchTimeoutStr = "60s"
	balanceURL = "https://www.dnb.no/kort/kronekort/saldo/"
	dataDir = "data"
	webEnabled = true
	webAddr = ":8080"

	// step 1: welcome + token
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("KRONEVAKT CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Balance watching for your Kronekort.\n"))

	fmt.Println(stepStyle.Render("STEP 1: TELEGRAM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot Token").
				Description("From @BotFather. Leave empty to set TELEGRAM_BOT_TOKEN yourself.").
				Value(&token).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return err
	}

	// timing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KRONEVAKT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: TIMING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Check Interval").
				Description("Time between balance checks (e.g. 5m)").
				Value(&checkIntervalStr).
				Validate(validateDuration),
			huh.NewInput().
				Title("Fetch Timeout").
				Description("Upper bound for one check (e.g. 60s)").
				Value(&fetchTimeoutStr).
				Validate(validateDuration),
		),
	).Run()
	if err != nil {
		return err
	}

	// portal and storage
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KRONEVAKT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: PORTAL & STORAGE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Saldo Page URL").
				Value(&balanceURL).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("URL cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Data Directory").
				Description("Where balance state is persisted").
				Value(&dataDir),
		),
	).Run()
	if err != nil {
		return err
	}

	// dashboard
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KRONEVAKT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: DASHBOARD"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable web dashboard?").
				Value(&webEnabled),
		),
	).Run()
	if err != nil {
		return err
	}
	if webEnabled {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Listen Address").
					Description("e.g. :8080 or 127.0.0.1:8080").
					Value(&webAddr),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KRONEVAKT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	dashboard := "disabled"
	if webEnabled {
		dashboard = webAddr
	}
	summary := fmt.Sprintf(
		"Check interval: %s\nFetch timeout: %s\nSaldo URL: %s\nData dir: %s\nDashboard: %s\n",
		checkIntervalStr, fetchTimeoutStr, balanceURL, dataDir, dashboard,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	checkInterval, _ := time.ParseDuration(checkIntervalStr)
	fetchTimeout, _ := time.ParseDuration(fetchTimeoutStr)

	cfg := generatedConfig{
		CheckInterval: checkInterval,
		FetchTimeout:  fetchTimeout,
		BalanceURL:    balanceURL,
		DataDir:       dataDir,
	}
	if webEnabled {
		cfg.WebAddr = webAddr
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	if token != "" {
		if err := os.WriteFile(".env", []byte("TELEGRAM_BOT_TOKEN="+token+"\n"), 0600); err != nil {
			return fmt.Errorf("failed to save .env file: %w", err)
		}
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nRun with --config %s", filename, filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration like 5m or 60s")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
