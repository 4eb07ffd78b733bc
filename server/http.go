// Package server mounts the HTTP+JSON facade a peer exposes to other
// peers and to clients, delegating every route to the underlying
// raft.Node. It is a thin translation layer: wire shapes in, core calls
// out, wire shapes back.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raftkv/raft"
)

// Server is the gin-backed HTTP facade for one peer.
type Server struct {
	node   *raft.Node
	engine *gin.Engine
}

func New(node *raft.Node) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		node:   node,
		engine: gin.New(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.POST("/vote_req", s.handleVoteReq)
	s.engine.POST("/heartbeat", s.handleHeartbeat)
	s.engine.POST("/leader_down", s.handleLeaderDown)
	s.engine.GET("/show_log", s.handleShowLog)
	s.engine.GET("/request", s.handleGet)
	s.engine.PUT("/request", s.handlePut)
	s.engine.DELETE("/request", s.handleDelete)
}

func (s *Server) handleVoteReq(c *gin.Context) {
	var req raft.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.node.RequestVote(&req))
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	var msg raft.Heartbeat
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.node.Heartbeat(&msg))
}

func (s *Server) handleLeaderDown(c *gin.Context) {
	var msg raft.LeaderDown
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.node.LeaderDown(&msg)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleShowLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"log": s.node.ShowLog()})
}

type clientPayload struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

type clientRequest struct {
	Type    string        `json:"type"`
	Payload clientPayload `json:"payload"`
}

func (s *Server) handleGet(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	value, found, redirect := s.node.Get(req.Payload.Key)
	if redirect != "" {
		c.JSON(http.StatusOK, gin.H{
			"code":    "fail",
			"payload": clientPayload{Key: req.Payload.Key, Message: redirect},
		})
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{
			"code":    "fail",
			"payload": clientPayload{Key: req.Payload.Key},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "success",
		"payload": clientPayload{Key: req.Payload.Key, Value: value},
	})
}

func (s *Server) handlePut(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, redirect := s.node.Put(req.Payload.Key, req.Payload.Value)
	if redirect != "" {
		c.JSON(http.StatusOK, gin.H{
			"code": "fail",
			"payload": clientPayload{
				Key: req.Payload.Key, Value: req.Payload.Value, Message: redirect,
			},
		})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"code": "fail"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "success"})
}

func (s *Server) handleDelete(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, redirect := s.node.Delete(req.Payload.Key)
	if redirect != "" {
		c.JSON(http.StatusOK, gin.H{
			"code":    "fail",
			"payload": clientPayload{Key: req.Payload.Key, Message: redirect},
		})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"code": "fail"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "success"})
}
