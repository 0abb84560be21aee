// Package notify is the delivery boundary: everything the engine emits
// goes out through a Notifier, and the roster is read through a Directory.
// Both are satisfied by the Mattermost-backed Platform; tests substitute
// fakes.
package notify

import (
	"fmt"
	"sync"

	"workday-bot/internal/mattermost"
)

// Notifier delivers notification intents. Delivery is best effort: errors
// are for the caller to log, never to abort on.
type Notifier interface {
	DirectMessage(userID, text string) error
	Broadcast(teamID, text string) error
	LogEvent(teamID, text string) error
}

// Member is one roster entry.
type Member struct {
	UserID   string
	Username string
}

// Directory resolves teams and tracked roster members.
type Directory interface {
	Teams() ([]string, error)
	TrackedMembers(teamID, role string) ([]Member, error)
	IsTrackedMember(userID, teamID, role string) (bool, error)
}

// Platform implements Notifier and Directory on the Mattermost client.
// Broadcasts go to the first existing channel among broadcastNames; log
// events go to the logChannel and are a no-op when no such channel exists.
type Platform struct {
	client         *mattermost.Client
	broadcastNames []string
	logChannel     string

	mu       sync.Mutex
	channels map[string]string // teamID+":"+name -> channelID
}

func NewPlatform(client *mattermost.Client, broadcastNames []string, logChannel string) *Platform {
	return &Platform{
		client:         client,
		broadcastNames: broadcastNames,
		logChannel:     logChannel,
		channels:       make(map[string]string),
	}
}

func (p *Platform) DirectMessage(userID, text string) error {
	return p.client.SendDM(userID, text)
}

func (p *Platform) Broadcast(teamID, text string) error {
	for _, name := range p.broadcastNames {
		id, err := p.channelID(teamID, name)
		if err != nil {
			continue
		}
		_, err = p.client.CreatePost(&mattermost.Post{ChannelID: id, Message: text})
		return err
	}
	return fmt.Errorf("no broadcast channel found in team %s", teamID)
}

// LogEvent posts to the configured log channel. A team without one simply
// does not get log events.
func (p *Platform) LogEvent(teamID, text string) error {
	if p.logChannel == "" {
		return nil
	}
	id, err := p.channelID(teamID, p.logChannel)
	if err != nil {
		return nil
	}
	_, err = p.client.CreatePost(&mattermost.Post{ChannelID: id, Message: text})
	return err
}

func (p *Platform) Teams() ([]string, error) {
	teams, err := p.client.ListTeams()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (p *Platform) TrackedMembers(teamID, role string) ([]Member, error) {
	users, err := p.client.UsersInTeam(teamID)
	if err != nil {
		return nil, err
	}
	var members []Member
	for _, u := range users {
		if u.HasRole(role) {
			members = append(members, Member{UserID: u.ID, Username: u.Username})
		}
	}
	return members, nil
}

func (p *Platform) IsTrackedMember(userID, teamID, role string) (bool, error) {
	user, err := p.client.GetUser(userID)
	if err != nil {
		return false, err
	}
	return user.HasRole(role), nil
}

func (p *Platform) channelID(teamID, name string) (string, error) {
	key := teamID + ":" + name
	p.mu.Lock()
	if id, ok := p.channels[key]; ok {
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	id, err := p.client.GetChannelByName(teamID, name)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.channels[key] = id
	p.mu.Unlock()
	return id, nil
}
