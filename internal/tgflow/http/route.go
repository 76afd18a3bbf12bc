package http

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

func (s *Service) initRouter() {
	s.router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := s.router.Group("/api/v1")
	api.GET("/status", s.GetStatus)
	api.GET("/chats", s.GetChats)
	api.GET("/debug/topics", s.GetTopicDumps)
}

func (s *Service) GetStatus(c *gin.Context) {
	state := s.status.SessionState()
	resp := gin.H{
		"loop":       s.status.LoopState(),
		"dispatched": s.status.Dispatched(),
		"failed":     s.status.Failed(),
		"pts":        state.Pts,
		"qts":        state.Qts,
		"seq":        state.Seq,
		"date":       state.Date,
	}
	if userID, ok := s.status.SessionUser(); ok {
		resp["user_id"] = userID
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) GetChats(c *gin.Context) {
	chats := s.registry.KnownChats()
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].ID() < chats[j].ID()
	})

	items := make([]gin.H, 0, len(chats))
	for _, chat := range chats {
		items = append(items, gin.H{
			"id":        chat.ID(),
			"kind":      chat.Peer.Kind,
			"title":     chat.Name(),
			"username":  chat.Username,
			"forum":     chat.IsForum(),
			"synthetic": chat.Synthetic,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (s *Service) GetTopicDumps(c *gin.Context) {
	dumps := s.registry.RecentTopicDumps()
	c.JSON(http.StatusOK, gin.H{"items": dumps, "total": len(dumps)})
}
