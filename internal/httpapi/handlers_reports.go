package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGenerateReport(c *gin.Context) {
	stats, name, err := s.reports.Generate(c.Query("date"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(c, http.StatusOK, "report generated", gin.H{"report": name, "stats": stats})
}

func (s *Server) handleListReports(c *gin.Context) {
	files, err := s.reports.List()
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusOK, "reports retrieved", gin.H{"reports": files})
}

func (s *Server) handleDownloadReport(c *gin.Context) {
	path, err := s.reports.Path(c.Param("filename"))
	if err != nil {
		respondErr(c, http.StatusNotFound, err.Error())
		return
	}
	c.FileAttachment(path, c.Param("filename"))
}
