package web

import (
	"fmt"
	"strings"

	"github.com/lemurforge/lemur/db"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// ResolveWebfinger answers acct: lookups for local persons and
// communities. Community names use the community itself, person names the
// Person actor; both live under the same acct namespace.
func ResolveWebfinger(resource string, conf *util.AppConfig) (error, *domain.WebfingerResponse) {
	name, domainPart, err := parseAcctResource(resource)
	if err != nil {
		return err, nil
	}
	if !strings.EqualFold(domainPart, conf.Conf.SslDomain) {
		return fmt.Errorf("resource %s is not served here", resource), nil
	}

	var actorURI string
	if err, person := db.GetDB().ReadLocalPersonByUsername(name); err == nil && person != nil && !person.Deleted {
		actorURI = fmt.Sprintf("https://%s/u/%s", conf.Conf.SslDomain, person.Username)
	} else if err, community := db.GetDB().ReadCommunityByName(name); err == nil && community != nil && !community.Deleted && !community.Removed {
		actorURI = fmt.Sprintf("https://%s/c/%s", conf.Conf.SslDomain, community.Name)
	} else {
		return fmt.Errorf("no local actor named %s", name), nil
	}

	return nil, &domain.WebfingerResponse{
		Subject: fmt.Sprintf("acct:%s@%s", name, conf.Conf.SslDomain),
		Links: []domain.WebfingerLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: actorURI,
			},
			{
				Rel:  "http://webfinger.net/rel/profile-page",
				Type: "text/html",
				Href: actorURI,
			},
		},
	}
}

func parseAcctResource(resource string) (string, string, error) {
	acct := strings.TrimPrefix(resource, "acct:")
	acct = strings.TrimPrefix(acct, "@")
	parts := strings.Split(acct, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed webfinger resource: %s", resource)
	}
	return parts[0], parts[1], nil
}
