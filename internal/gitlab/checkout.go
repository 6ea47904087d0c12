package gitlab

import (
	"encoding/json"
	"fmt"
	"strings"
)

const checkoutCommandName = "sd-checkout-code"

// CheckoutConfig identifies what a build should check out
type CheckoutConfig struct {
	Host   string
	Org    string
	Repo   string
	Branch string
	SHA    string
	PRRef  string // merge request source ref; empty for branch builds
}

// CheckoutCommand is a named shell command made of ordered steps
type CheckoutCommand struct {
	Name  string   `json:"name"`
	Steps []string `json:"-"`
}

// Command joins the steps so a failing step stops the sequence
func (c CheckoutCommand) Command() string {
	return strings.Join(c.Steps, " && ")
}

// MarshalJSON renders {name, command}
func (c CheckoutCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string `json:"name"`
		Command string `json:"command"`
	}{c.Name, c.Command()})
}

// GetCheckoutCommand builds the clone/checkout (and merge request merge) command.
// It performs no I/O.
func (c *Client) GetCheckoutCommand(cfg CheckoutConfig) CheckoutCommand {
	checkoutURL := fmt.Sprintf("%s/%s/%s", cfg.Host, cfg.Org, cfg.Repo)
	sshCheckoutURL := fmt.Sprintf("git@%s:%s/%s", cfg.Host, cfg.Org, cfg.Repo)

	checkoutRef := cfg.SHA
	if cfg.PRRef != "" {
		checkoutRef = cfg.Branch
	}

	steps := []string{
		"if [ ! -z $SCM_CLONE_TYPE ] && [ $SCM_CLONE_TYPE = ssh ]; " +
			fmt.Sprintf("then export SCM_URL=%s; ", sshCheckoutURL) +
			"elif [ ! -z $SCM_USERNAME ] && [ ! -z $SCM_ACCESS_TOKEN ]; " +
			fmt.Sprintf("then export SCM_URL=https://$SCM_USERNAME:$SCM_ACCESS_TOKEN@%s; ", checkoutURL) +
			fmt.Sprintf("else export SCM_URL=https://%s; fi", checkoutURL),
		fmt.Sprintf("echo Cloning %s, on branch %s", checkoutURL, cfg.Branch),
		fmt.Sprintf("git clone --quiet --progress --branch %s $SCM_URL $SD_SOURCE_DIR", cfg.Branch),
		fmt.Sprintf("echo Reset to %s", checkoutRef),
		fmt.Sprintf("git reset --hard %s", checkoutRef),
		"echo Setting user name and user email",
		fmt.Sprintf("git config user.name %s", c.config.Username),
		fmt.Sprintf("git config user.email %s", c.config.Email),
	}

	if cfg.PRRef != "" {
		steps = append(steps,
			fmt.Sprintf("echo Fetching PR and merging with %s", cfg.Branch),
			fmt.Sprintf("git fetch origin %s", cfg.PRRef),
			fmt.Sprintf("git merge %s", cfg.SHA),
		)
	}

	return CheckoutCommand{
		Name:  checkoutCommandName,
		Steps: steps,
	}
}
