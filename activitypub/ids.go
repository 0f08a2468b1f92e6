package activitypub

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// GenerateActivityID mints a fresh activity id under the sending
// instance's domain.
func GenerateActivityID(conf *util.AppConfig) string {
	return fmt.Sprintf("https://%s/activities/%s", conf.Conf.SslDomain, uuid.New().String())
}

// GenerateTo builds the to-array for a community-scoped activity: the
// public collection plus the community's followers collection. Restricted
// communities omit the public marker.
func GenerateTo(community *domain.Community) []string {
	if community.Visibility == domain.CommunityVisibilityRestricted {
		return []string{community.FollowersURI}
	}
	return []string{domain.PublicAudience, community.FollowersURI}
}

// ActorURI builds a local person actor URI.
func ActorURI(conf *util.AppConfig, username string) string {
	return fmt.Sprintf("https://%s/u/%s", conf.Conf.SslDomain, username)
}

// CommunityActorURI builds a local community actor URI.
func CommunityActorURI(conf *util.AppConfig, name string) string {
	return fmt.Sprintf("https://%s/c/%s", conf.Conf.SslDomain, name)
}

// ExtractDomain returns the host part of an actor or object URI.
func ExtractDomain(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in uri: %s", uri)
	}
	return u.Host, nil
}

// IsLocalURI reports whether the URI belongs to this instance.
func IsLocalURI(conf *util.AppConfig, uri string) bool {
	host, err := ExtractDomain(uri)
	if err != nil {
		return false
	}
	return strings.EqualFold(host, conf.Conf.SslDomain)
}

// IsPublicAudience reports whether any entry of to/cc addresses the
// public collection. Both the canonical URI and the "as:Public" shorthand
// appear in the wild.
func IsPublicAudience(entries []string) bool {
	for _, entry := range entries {
		if entry == domain.PublicAudience || entry == "as:Public" || entry == "Public" {
			return true
		}
	}
	return false
}
