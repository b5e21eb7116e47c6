// Package recommend calls the external chat-completion service that
// proposes team/project pairings from motivation letters, and parses its
// free-text answer into a strict assignment list.
package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	imrocreq "github.com/imroc/req/v3"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/pkg/apperr"
)

// TeamPreference is the prompt-side view of one team's applications.
type TeamPreference struct {
	TeamName    string
	ProjectName string
	Motivation  string
}

type Config struct {
	URL        string
	APIKey     string
	Model      string
	Timeout    time.Duration
	RetryCount int
}

type Client struct {
	conf Config
	req  *imrocreq.Client
}

func NewClient(conf Config) *Client {
	if conf.Timeout == 0 {
		conf.Timeout = 10 * time.Second
	}
	client := imrocreq.C().
		SetTimeout(conf.Timeout).
		SetCommonRetryCount(conf.RetryCount).
		SetCommonRetryBackoffInterval(500*time.Millisecond, 2*time.Second)
	return &Client{conf: conf, req: client}
}

type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	chatReq struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}
	chatResp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
)

// Propose submits the team preferences to the recommender and returns the
// parsed assignment list. Transport failures and malformed answers both
// surface as upstream errors after the bounded retry budget; the caller
// degrades them to an advisory "unavailable" response.
func (c *Client) Propose(ctx context.Context, prefs []TeamPreference) ([]Assignment, error) {
	var result chatResp
	resp, err := c.req.R().
		SetContext(ctx).
		SetBearerAuthToken(c.conf.APIKey).
		SetBody(&chatReq{
			Model:    c.conf.Model,
			Messages: []chatMessage{{Role: "user", Content: buildPrompt(prefs)}},
		}).
		SetSuccessResult(&result).
		Post(c.conf.URL)
	if err != nil {
		klog.Errorf("recommender call failed: %v", err)
		return nil, apperr.Wrap(apperr.KindUpstream, err, "recommender unavailable")
	}
	if resp.IsErrorState() {
		klog.Errorf("recommender returned status %d", resp.StatusCode)
		return nil, apperr.Upstreamf("recommender returned status %d", resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return nil, apperr.Upstreamf("recommender returned no choices")
	}
	return ParseAssignments(result.Choices[0].Message.Content)
}

func buildPrompt(prefs []TeamPreference) string {
	var letters strings.Builder
	teams := map[string]bool{}
	for _, pref := range prefs {
		teams[pref.TeamName] = true
		letters.WriteString(pref.TeamName + "\n\n")
		letters.WriteString("Project: " + pref.ProjectName + "\n")
		if pref.Motivation != "" {
			letters.WriteString(pref.Motivation)
		} else {
			letters.WriteString("No motivation letter provided.")
		}
		letters.WriteString("\n---\n")
	}

	return fmt.Sprintf(`I have %d groups, and I need to assign teams to projects.

The constraints are:
1. Each group should be assigned to one project.
2. Each project can have a maximum of 3 groups.
3. Assign groups to projects based on their motivation letters.

Here are the team details:
%s

Format the output as a JSON array with this structure:
[
  {
    "teamName": "exact-team-name-without-adding-Team-prefix",
    "assignedProject": "Project Name"
  },
  ...
]

IMPORTANT: Use the exact team names as provided in the input. Do NOT add "Team" prefix to any team name.
Only provide the output JSON array with no additional explanation or text.`, len(teams), letters.String())
}
