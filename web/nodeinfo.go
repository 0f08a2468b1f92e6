package web

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/lemurforge/lemur/db"
	"github.com/lemurforge/lemur/util"
)

// NodeInfo20 represents the NodeInfo 2.0 schema
// See: https://nodeinfo.diaspora.software/schema.html
type NodeInfo20 struct {
	Version           string           `json:"version"`
	Software          NodeInfoSoftware `json:"software"`
	Protocols         []string         `json:"protocols"`
	Services          NodeInfoServices `json:"services"`
	OpenRegistrations bool             `json:"openRegistrations"`
	Usage             NodeInfoUsage    `json:"usage"`
	Metadata          NodeInfoMetadata `json:"metadata"`
}

type NodeInfoSoftware struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type NodeInfoServices struct {
	Inbound  []string `json:"inbound"`
	Outbound []string `json:"outbound"`
}

type NodeInfoUsage struct {
	Users            NodeInfoUsers `json:"users"`
	LocalPosts       int           `json:"localPosts"`
	LocalCommunities int           `json:"localCommunities"`
}

type NodeInfoUsers struct {
	Total int `json:"total"`
}

type NodeInfoMetadata struct {
	NodeName        string `json:"nodeName"`
	NodeDescription string `json:"nodeDescription"`
}

// WellKnownNodeInfo represents the /.well-known/nodeinfo response
type WellKnownNodeInfo struct {
	Links []NodeInfoLink `json:"links"`
}

type NodeInfoLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// GetNodeInfo20 returns a NodeInfo 2.0 JSON response
func GetNodeInfo20(conf *util.AppConfig) string {
	database := db.GetDB()

	totalUsers, err := database.CountLocalPersons()
	if err != nil {
		log.Printf("Failed to count persons: %v", err)
		totalUsers = 0
	}

	localPosts, err := database.CountLocalPosts()
	if err != nil {
		log.Printf("Failed to count local posts: %v", err)
		localPosts = 0
	}

	localCommunities, err := database.CountCommunities()
	if err != nil {
		log.Printf("Failed to count communities: %v", err)
		localCommunities = 0
	}

	info := NodeInfo20{
		Version: "2.0",
		Software: NodeInfoSoftware{
			Name:    util.Name,
			Version: util.GetVersion(),
		},
		Protocols: []string{"activitypub"},
		Services: NodeInfoServices{
			Inbound:  []string{},
			Outbound: []string{"rss2.0"},
		},
		OpenRegistrations: false,
		Usage: NodeInfoUsage{
			Users:            NodeInfoUsers{Total: totalUsers},
			LocalPosts:       localPosts,
			LocalCommunities: localCommunities,
		},
		Metadata: NodeInfoMetadata{
			NodeName:        conf.Conf.NodeName,
			NodeDescription: conf.Conf.NodeDescription,
		},
	}

	raw, err := json.Marshal(info)
	if err != nil {
		log.Printf("Failed to marshal nodeinfo: %v", err)
		return "{}"
	}
	return string(raw)
}

// GetWellKnownNodeInfo returns the discovery document pointing at the 2.0
// endpoint.
func GetWellKnownNodeInfo(conf *util.AppConfig) string {
	wk := WellKnownNodeInfo{
		Links: []NodeInfoLink{
			{
				Rel:  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				Href: fmt.Sprintf("https://%s/nodeinfo/2.0", conf.Conf.SslDomain),
			},
		},
	}
	raw, err := json.Marshal(wk)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
