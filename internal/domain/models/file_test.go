package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCategoryForMIME(t *testing.T) {
	tests := []struct {
		mime string
		want FileCategory
	}{
		{"image/png", CategoryImage},
		{"IMAGE/JPEG", CategoryImage},
		{"application/pdf", CategoryPDF},
		{"application/pdf; charset=binary", CategoryPDF},
		{"application/msword", CategoryWord},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", CategoryWord},
		{"application/vnd.ms-excel", CategoryExcel},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", CategoryExcel},
		{"application/vnd.ms-powerpoint", CategoryPowerPoint},
		{"application/vnd.openxmlformats-officedocument.presentationml.presentation", CategoryPowerPoint},
		{"text/plain", CategoryDocument},
		{"", CategoryDocument},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := CategoryForMIME(tt.mime); got != tt.want {
				t.Errorf("CategoryForMIME(%q) = %s, want %s", tt.mime, got, tt.want)
			}
		})
	}
}

func TestFileCategory_IsValid(t *testing.T) {
	for _, c := range AllCategories {
		if !c.IsValid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if FileCategory("video").IsValid() {
		t.Error("video should not be a valid category")
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, limit, total int
		want               Pagination
	}{
		{
			name: "first of three pages",
			page: 1, limit: 10, total: 25,
			want: Pagination{CurrentPage: 1, TotalPages: 3, TotalItems: 25, HasNext: true, HasPrev: false},
		},
		{
			name: "last page",
			page: 3, limit: 10, total: 25,
			want: Pagination{CurrentPage: 3, TotalPages: 3, TotalItems: 25, HasNext: false, HasPrev: true},
		},
		{
			name: "empty listing",
			page: 1, limit: 10, total: 0,
			want: Pagination{CurrentPage: 1, TotalPages: 0, TotalItems: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NewPagination(tt.page, tt.limit, tt.total)); diff != "" {
				t.Errorf("NewPagination()\n%s", diff)
			}
		})
	}
}

func TestChildCounts_IsEmpty(t *testing.T) {
	if !(ChildCounts{}).IsEmpty() {
		t.Error("zero counts should be empty")
	}
	if (ChildCounts{Files: 1}).IsEmpty() {
		t.Error("a folder with a file is not empty")
	}
	if (ChildCounts{Subfolders: 1}).IsEmpty() {
		t.Error("a folder with a subfolder is not empty")
	}
}
