package handlers

import (
	"net/http"

	"yourvocab/internal/logger"
	"yourvocab/internal/models"
	"yourvocab/internal/service"
)

// CourseHandler serves course, enrollment and lesson authoring endpoints
type CourseHandler struct {
	courses *service.CourseService
	log     *logger.Logger
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courses *service.CourseService, log *logger.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, log: log}
}

type createCourseRequest struct {
	Name          string        `json:"name"`
	Public        bool          `json:"public"`
	HelperSymbols string        `json:"helper_symbols"`
	Rules         *models.Rules `json:"rules"`
}

type enrollRequest struct {
	Rules *models.Rules `json:"rules"`
}

type lessonRequest struct {
	Name          string   `json:"name"`
	Questions     []string `json:"questions"`
	Answers       []string `json:"answers"`
	QuestionsText string   `json:"questions_text"`
	AnswersText   string   `json:"answers_text"`
}

func (req lessonRequest) input() service.LessonInput {
	return service.LessonInput{
		Name:          req.Name,
		Questions:     req.Questions,
		Answers:       req.Answers,
		QuestionsText: req.QuestionsText,
		AnswersText:   req.AnswersText,
	}
}

// ListCourses handles GET /api/courses
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context(), LearnerFromContext(r.Context()))
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}
	respondJSON(w, http.StatusOK, courses)
}

// ListPublicCourses handles GET /api/courses/public
func (h *CourseHandler) ListPublicCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListPublicCourses(r.Context())
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}
	respondJSON(w, http.StatusOK, courses)
}

// CreateCourse handles POST /api/courses
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	course, err := h.courses.CreateCourse(r.Context(), LearnerFromContext(r.Context()), service.NewCourse{
		Name:          req.Name,
		Public:        req.Public,
		HelperSymbols: req.HelperSymbols,
		Rules:         req.Rules,
	})
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, course)
}

// GetCourse handles GET /api/courses/{id}
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	course, err := h.courses.GetCourse(r.Context(), LearnerFromContext(r.Context()), courseID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}

// Enroll handles POST /api/courses/{id}/enroll. The body is optional.
func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	courseID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	var req enrollRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	enrollment, err := h.courses.Enroll(r.Context(), LearnerFromContext(r.Context()), courseID, req.Rules)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, enrollment)
}

// UpdateRules handles PUT /api/courses/{id}/rules
func (h *CourseHandler) UpdateRules(w http.ResponseWriter, r *http.Request) {
	courseID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	var rules models.Rules
	if err := decodeJSON(w, r, &rules, false); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	enrollment, err := h.courses.UpdateRules(r.Context(), LearnerFromContext(r.Context()), courseID, rules)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, enrollment)
}

// CreateLesson handles POST /api/courses/{id}/lessons
func (h *CourseHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	courseID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	var req lessonRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	lesson, err := h.courses.CreateLesson(r.Context(), LearnerFromContext(r.Context()), courseID, req.input())
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, lesson)
}

// GetLesson handles GET /api/lessons/{id}
func (h *CourseHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	lesson, err := h.courses.GetLesson(r.Context(), LearnerFromContext(r.Context()), lessonID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, lesson)
}

// UpdateLesson handles PUT /api/lessons/{id}
func (h *CourseHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	var req lessonRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	lesson, err := h.courses.UpdateLesson(r.Context(), LearnerFromContext(r.Context()), lessonID, req.input())
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, lesson)
}

// DeleteLesson handles DELETE /api/lessons/{id}
func (h *CourseHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	if err := h.courses.DeleteLesson(r.Context(), LearnerFromContext(r.Context()), lessonID); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
