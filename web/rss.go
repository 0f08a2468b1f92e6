package web

import (
	"fmt"

	"github.com/gorilla/feeds"
	"github.com/lemurforge/lemur/db"
	"github.com/lemurforge/lemur/util"
)

const rssPostLimit = 50

// GetCommunityRSS renders the newest posts of a local community as an RSS
// feed. Deleted and removed posts never appear.
func GetCommunityRSS(conf *util.AppConfig, name string) (string, error) {
	database := db.GetDB()

	err, community := database.ReadCommunityByName(name)
	if err != nil {
		return "", err
	}
	if community.Deleted || community.Removed {
		return "", fmt.Errorf("community %s is not available", name)
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s on %s", community.Title, conf.Conf.NodeName),
		Link:        &feeds.Link{Href: fmt.Sprintf("https://%s/c/%s", conf.Conf.SslDomain, community.Name)},
		Description: community.Description,
		Created:     community.CreatedAt,
	}

	err, posts := database.ReadPostsByCommunityId(community.Id, rssPostLimit)
	if err != nil {
		return "", err
	}
	for _, post := range *posts {
		item := &feeds.Item{
			Id:          post.ObjectURI,
			Title:       post.Title,
			Link:        &feeds.Link{Href: fmt.Sprintf("https://%s/post/%s", conf.Conf.SslDomain, post.Id)},
			Description: util.MarkdownLinksToHTML(post.Body),
			Created:     post.CreatedAt,
		}
		if post.URL != "" {
			item.Link = &feeds.Link{Href: post.URL}
		}
		feed.Items = append(feed.Items, item)
	}

	return feed.ToRss()
}
