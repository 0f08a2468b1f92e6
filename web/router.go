package web

import (
	"log"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"github.com/lemurforge/lemur/activitypub"
	"github.com/lemurforge/lemur/util"
	"golang.org/x/time/rate"
)

const apContentType = "application/activity+json; charset=utf-8"

// NewRouter builds the gin engine with all federation and read endpoints.
func NewRouter(conf *util.AppConfig) *gin.Engine {
	// Set Gin to use the same log writer as the rest of the application
	gin.DefaultWriter = util.GetLogWriter()
	gin.DefaultErrorWriter = util.GetLogWriter()

	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// RSS feed of a community's posts
	g.GET("/feed/:name", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")
		rss, err := GetCommunityRSS(conf, c.Param("name"))
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	if conf.Conf.WithFederation {
		// Stricter rate limit for ActivityPub endpoints: 5 req/sec per IP
		apLimiter := NewRateLimiter(rate.Limit(5), 10)

		// Max 1MB request body size for ActivityPub activities
		maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)

		inbox := func(c *gin.Context) {
			activitypub.HandleInbox(c.Writer, c.Request, conf)
		}

		// Shared inbox plus per-actor inboxes. All routes converge on the
		// same handler: the activity itself carries its addressing.
		g.POST("/inbox", RateLimitMiddleware(apLimiter), maxBodySize, inbox)
		g.POST("/u/:username/inbox", RateLimitMiddleware(apLimiter), maxBodySize, inbox)
		g.POST("/c/:name/inbox", RateLimitMiddleware(apLimiter), maxBodySize, inbox)

		g.GET("/u/:username", func(c *gin.Context) {
			c.Header("Content-Type", apContentType)
			err, actor := GetPersonActor(c.Param("username"), conf)
			if err != nil {
				c.Render(404, render.String{Format: actor})
			} else {
				c.Render(200, render.String{Format: actor})
			}
		})

		g.GET("/c/:name", func(c *gin.Context) {
			c.Header("Content-Type", apContentType)
			err, actor := GetCommunityActor(c.Param("name"), conf)
			if err != nil {
				c.Render(404, render.String{Format: actor})
			} else {
				c.Render(200, render.String{Format: actor})
			}
		})

		// Serve individual posts and comments as ActivityPub objects
		g.GET("/post/:id", func(c *gin.Context) {
			c.Header("Content-Type", apContentType)
			postId, err := uuid.Parse(c.Param("id"))
			if err != nil {
				c.JSON(404, gin.H{"error": "Invalid post ID"})
				return
			}
			err, object := GetPostObject(postId, conf)
			if err != nil {
				c.JSON(404, gin.H{"error": "Post not found"})
			} else {
				c.Render(200, render.String{Format: object})
			}
		})

		g.GET("/comment/:id", func(c *gin.Context) {
			c.Header("Content-Type", apContentType)
			commentId, err := uuid.Parse(c.Param("id"))
			if err != nil {
				c.JSON(404, gin.H{"error": "Invalid comment ID"})
				return
			}
			err, object := GetCommentObject(commentId, conf)
			if err != nil {
				c.JSON(404, gin.H{"error": "Comment not found"})
			} else {
				c.Render(200, render.String{Format: object})
			}
		})

		g.GET("/.well-known/webfinger", func(c *gin.Context) {
			resource := c.Query("resource")
			err, response := ResolveWebfinger(resource, conf)
			if err != nil {
				log.Printf("Webfinger: %v", err)
				c.JSON(404, gin.H{"error": "Resource not found"})
				return
			}
			c.Header("Content-Type", "application/jrd+json; charset=utf-8")
			c.JSON(200, response)
		})

		g.GET("/.well-known/nodeinfo", func(c *gin.Context) {
			c.Header("Content-Type", "application/json; charset=utf-8")
			c.Render(200, render.String{Format: GetWellKnownNodeInfo(conf)})
		})

		g.GET("/nodeinfo/2.0", func(c *gin.Context) {
			c.Header("Content-Type", "application/json; charset=utf-8")
			c.Render(200, render.String{Format: GetNodeInfo20(conf)})
		})
	}

	return g
}
