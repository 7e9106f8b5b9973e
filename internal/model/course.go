package model

// swagger:model Course
type Course struct {
	UUIDBase
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	IsPublished bool      `gorm:"default:false;index" json:"is_published"`
	CreatedBy   *string   `gorm:"type:varchar(36);index" json:"created_by"`
	Chapters    []Chapter `gorm:"foreignKey:CourseID" json:"chapters,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Chapter
type Chapter struct {
	UUIDBase
	CourseID    string   `gorm:"type:varchar(36);not null;index" json:"course_id"`
	Title       string   `gorm:"size:200;not null" json:"title"`
	Description *string  `gorm:"type:text" json:"description"`
	Order       int      `gorm:"column:order;default:0" json:"order"`
	CreatedBy   *string  `gorm:"type:varchar(36)" json:"created_by"`
	Lessons     []Lesson `gorm:"foreignKey:ChapterID" json:"lessons,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// Enrollment 学生选课记录
type Enrollment struct {
	UUIDBase
	CourseID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrollment_course_user" json:"course_id"`
	UserID   string `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrollment_course_user" json:"user_id"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
