package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/service/gamesession"
)

// resultRow - строка итоговой таблицы для экспорта
type resultRow struct {
	Rank           uint
	Nickname       string
	TotalScore     int
	CorrectAnswers int
	TotalAnswers   int
	IsHost         bool
}

// ExportResults экспортирует итоги сессии в CSV или XLSX.
// Формат задается query-параметром format (по умолчанию csv).
func (h *GameHandler) ExportResults(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(uint)

	session, participants, answers, err := h.coordinator.SessionResults(c.Request.Context(), sessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	rows := buildResultRows(participants, answers)
	filename := fmt.Sprintf("session_%s_results", session.Code)

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		h.exportXLSX(c, rows, filename)
	default:
		h.exportCSV(c, rows, filename)
	}
}

// buildResultRows агрегирует ответы участников в строки итоговой таблицы.
// Порядок и ранги совпадают с таблицей лидеров события GAME_ENDED.
func buildResultRows(participants []entity.Participant, answers []entity.SubmittedAnswer) []resultRow {
	correctByParticipant := make(map[uint]int, len(participants))
	totalByParticipant := make(map[uint]int, len(participants))
	for _, a := range answers {
		totalByParticipant[a.ParticipantID]++
		if a.IsCorrect {
			correctByParticipant[a.ParticipantID]++
		}
	}

	byUserID := make(map[uint]*entity.Participant, len(participants))
	for i := range participants {
		byUserID[participants[i].UserID] = &participants[i]
	}

	leaderboard := gamesession.BuildLeaderboard(participants)
	rows := make([]resultRow, 0, len(leaderboard))
	for _, e := range leaderboard {
		p := byUserID[e.UserID]
		if p == nil {
			continue
		}
		rows = append(rows, resultRow{
			Rank:           e.Rank,
			Nickname:       e.Nickname,
			TotalScore:     e.TotalScore,
			CorrectAnswers: correctByParticipant[p.ID],
			TotalAnswers:   totalByParticipant[p.ID],
			IsHost:         p.IsHost,
		})
	}
	return rows
}

// exportCSV экспортирует результаты в CSV с правильным экранированием спецсимволов
func (h *GameHandler) exportCSV(c *gin.Context, rows []resultRow, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	// Используем encoding/csv для правильного экранирования запятых/кавычек
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Заголовки
	writer.Write([]string{"Место", "Никнейм", "Очки", "Правильных", "Ответов", "Ведущий"})

	// Данные
	for _, r := range rows {
		host := "Нет"
		if r.IsHost {
			host = "Да"
		}

		writer.Write([]string{
			strconv.Itoa(int(r.Rank)),
			sanitizeForExcel(r.Nickname),
			strconv.Itoa(r.TotalScore),
			strconv.Itoa(r.CorrectAnswers),
			strconv.Itoa(r.TotalAnswers),
			host,
		})
	}
}

// exportXLSX экспортирует результаты в Excel с использованием StreamWriter
func (h *GameHandler) exportXLSX(c *gin.Context, rows []resultRow, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[GameHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	// Заголовки
	headers := []interface{}{"Место", "Никнейм", "Очки", "Правильных", "Ответов", "Ведущий"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[GameHandler] Ошибка записи заголовков: %v", err)
	}

	// Данные
	for i, r := range rows {
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		host := "Нет"
		if r.IsHost {
			host = "Да"
		}

		row := []interface{}{r.Rank, sanitizeForExcel(r.Nickname), r.TotalScore, r.CorrectAnswers, r.TotalAnswers, host}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[GameHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[GameHandler] Ошибка при Flush: %v", err)
	}

	// Записываем в response
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[GameHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
