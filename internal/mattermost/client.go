package mattermost

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func NewClient(baseURL, botToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		botToken:   botToken,
		httpClient: &http.Client{},
	}
}

// Post represents a Mattermost post.
type Post struct {
	ID        string `json:"id,omitempty"`
	ChannelID string `json:"channel_id"`
	Message   string `json:"message"`
	RootID    string `json:"root_id,omitempty"`
}

// Team holds basic team information.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User holds basic user information. Roles is the space-separated role
// list Mattermost keeps on the user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Roles    string `json:"roles"`
	IsBot    bool   `json:"is_bot"`
	DeleteAt int64  `json:"delete_at"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(role string) bool {
	for _, r := range strings.Fields(u.Roles) {
		if r == role {
			return true
		}
	}
	return false
}

// CreatePost creates a new post in a channel.
func (c *Client) CreatePost(post *Post) (*Post, error) {
	var result Post
	if err := c.doJSON("POST", "/api/v4/posts", post, &result); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &result, nil
}

// SendDM sends a direct message to a user.
func (c *Client) SendDM(userID, message string) error {
	// First, get or create a DM channel between bot and user
	var channel struct {
		ID string `json:"id"`
	}
	payload := []string{userID, "me"}
	if err := c.doJSON("POST", "/api/v4/channels/direct", payload, &channel); err != nil {
		return fmt.Errorf("create dm channel: %w", err)
	}

	_, err := c.CreatePost(&Post{
		ChannelID: channel.ID,
		Message:   message,
	})
	return err
}

// GetUser retrieves a user by ID.
func (c *Client) GetUser(userID string) (*User, error) {
	var user User
	if err := c.doJSON("GET", "/api/v4/users/"+userID, nil, &user); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetChannelByName looks up a channel by team ID and name.
func (c *Client) GetChannelByName(teamID, channelName string) (string, error) {
	var channel struct {
		ID string `json:"id"`
	}
	if err := c.doJSON("GET", fmt.Sprintf("/api/v4/teams/%s/channels/name/%s", teamID, channelName), nil, &channel); err != nil {
		return "", fmt.Errorf("get channel by name: %w", err)
	}
	return channel.ID, nil
}

// ListTeams returns all teams the bot can see.
func (c *Client) ListTeams() ([]Team, error) {
	var all []Team
	for page := 0; ; page++ {
		var batch []Team
		path := fmt.Sprintf("/api/v4/teams?page=%d&per_page=60", page)
		if err := c.doJSON("GET", path, nil, &batch); err != nil {
			return nil, fmt.Errorf("list teams: %w", err)
		}
		all = append(all, batch...)
		if len(batch) < 60 {
			return all, nil
		}
	}
}

// UsersInTeam returns the active, non-bot users of a team.
func (c *Client) UsersInTeam(teamID string) ([]User, error) {
	var all []User
	for page := 0; ; page++ {
		var batch []User
		path := fmt.Sprintf("/api/v4/users?in_team=%s&page=%d&per_page=200", teamID, page)
		if err := c.doJSON("GET", path, nil, &batch); err != nil {
			return nil, fmt.Errorf("list team users: %w", err)
		}
		for _, u := range batch {
			if u.IsBot || u.DeleteAt != 0 {
				continue
			}
			all = append(all, u)
		}
		if len(batch) < 200 {
			return all, nil
		}
	}
}

func (c *Client) doJSON(method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
