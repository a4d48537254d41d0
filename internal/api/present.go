package api

import (
	"taskhub/internal/api/auth"
	"taskhub/internal/model"
	"taskhub/internal/pkg/datefmt"
)

// 对外 JSON 表示。所有时间字段格式化为 DD-MM-YYYY HH:mm（本地时间），缺失为 null。

type categoryRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type taskRef struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type attachmentResponse struct {
	ID        uint    `json:"id"`
	TaskID    uint    `json:"taskId"`
	FileName  string  `json:"fileName"`
	URL       string  `json:"url"`
	CreatedAt *string `json:"createdAt"`
}

type shareGrantResponse struct {
	ID        uint               `json:"id"`
	TaskID    uint               `json:"taskId"`
	UserID    uint               `json:"userId"`
	CreatedAt *string            `json:"createdAt"`
	User      *auth.UserResponse `json:"user,omitempty"`
}

type taskResponse struct {
	ID          uint                 `json:"id"`
	Title       string               `json:"title"`
	Description *string              `json:"description"`
	DueDate     *string              `json:"dueDate"`
	Priority    string               `json:"priority"`
	CreatorID   uint                 `json:"creatorId"`
	CategoryID  *uint                `json:"categoryId"`
	CreatedAt   *string              `json:"createdAt"`
	UpdatedAt   *string              `json:"updatedAt"`
	Category    *categoryRef         `json:"category"`
	Attachments []attachmentResponse `json:"attachments"`
	SharedWith  []shareGrantResponse `json:"sharedWith"`
}

type sharedByResponse struct {
	Nome  *string `json:"nome"`
	Email string  `json:"email"`
}

// receivedTaskResponse 共享给当前用户的任务，附带创建者信息。
type receivedTaskResponse struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	DueDate     *string           `json:"dueDate"`
	Priority    string            `json:"priority"`
	CreatorID   uint              `json:"creatorId"`
	CategoryID  *uint             `json:"categoryId"`
	CreatedAt   *string           `json:"createdAt"`
	UpdatedAt   *string           `json:"updatedAt"`
	SharedAt    *string           `json:"sharedAt"`
	SharedBy    *sharedByResponse `json:"sharedBy"`
}

type categoryResponse struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	UserID    uint       `json:"userId"`
	CreatedAt *string    `json:"createdAt"`
	UpdatedAt *string    `json:"updatedAt"`
	Tasks     *[]taskRef `json:"tasks,omitempty"`
}

func newAttachmentResponse(a *model.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:        a.ID,
		TaskID:    a.TaskID,
		FileName:  a.FileName,
		URL:       a.URL,
		CreatedAt: datefmt.FormatTime(a.CreatedAt),
	}
}

func newShareGrantResponse(sh *model.SharedTask) shareGrantResponse {
	resp := shareGrantResponse{
		ID:        sh.ID,
		TaskID:    sh.TaskID,
		UserID:    sh.UserID,
		CreatedAt: datefmt.FormatTime(sh.CreatedAt),
	}
	if sh.User != nil {
		u := auth.NewUserResponse(sh.User)
		resp.User = &u
	}
	return resp
}

func newTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     datefmt.Format(t.DueDate),
		Priority:    t.Priority,
		CreatorID:   t.CreatorID,
		CategoryID:  t.CategoryID,
		CreatedAt:   datefmt.FormatTime(t.CreatedAt),
		UpdatedAt:   datefmt.FormatTime(t.UpdatedAt),
		Attachments: make([]attachmentResponse, 0, len(t.Attachments)),
		SharedWith:  make([]shareGrantResponse, 0, len(t.SharedWith)),
	}
	if t.Category != nil {
		resp.Category = &categoryRef{ID: t.Category.ID, Name: t.Category.Name}
	}
	for i := range t.Attachments {
		resp.Attachments = append(resp.Attachments, newAttachmentResponse(&t.Attachments[i]))
	}
	for i := range t.SharedWith {
		resp.SharedWith = append(resp.SharedWith, newShareGrantResponse(&t.SharedWith[i]))
	}
	return resp
}

func newTaskListResponse(tasks []model.Task) []taskResponse {
	resp := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, newTaskResponse(&tasks[i]))
	}
	return resp
}

func newReceivedTaskResponse(sh *model.SharedTask) receivedTaskResponse {
	t := sh.Task
	resp := receivedTaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     datefmt.Format(t.DueDate),
		Priority:    t.Priority,
		CreatorID:   t.CreatorID,
		CategoryID:  t.CategoryID,
		CreatedAt:   datefmt.FormatTime(t.CreatedAt),
		UpdatedAt:   datefmt.FormatTime(t.UpdatedAt),
		SharedAt:    datefmt.FormatTime(sh.CreatedAt),
	}
	if t.Creator != nil {
		resp.SharedBy = &sharedByResponse{Nome: t.Creator.Nome, Email: t.Creator.Email}
	}
	return resp
}

// newCategoryResponse 在 withTasks 为 true 时附带分类下任务的 id 与标题。
func newCategoryResponse(c *model.Category, withTasks bool) categoryResponse {
	resp := categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		UserID:    c.UserID,
		CreatedAt: datefmt.FormatTime(c.CreatedAt),
		UpdatedAt: datefmt.FormatTime(c.UpdatedAt),
	}
	if withTasks {
		tasks := make([]taskRef, 0, len(c.Tasks))
		for _, t := range c.Tasks {
			tasks = append(tasks, taskRef{ID: t.ID, Title: t.Title})
		}
		resp.Tasks = &tasks
	}
	return resp
}
