package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/bookkeeper/pkg/books"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
)

// BookListID is the element patched by live search.
const BookListID = "book-list"

type BookListData struct {
	UserName string
	Query    string
	Books    []books.Book
	// Notice is a message key carried over from the previous request.
	Notice string
}

func BookList(d BookListData) templ.Component {
	return Page{
		Title:    T("books.title"),
		UserName: d.UserName,
		Body:     bookListBody(d),
	}
}

type BookFormData struct {
	UserName string
	// BookID is zero when creating.
	BookID int64
	Title  string
	Author string
	Status books.Status
	Errors validator.ValidationErrors
}

func BookForm(d BookFormData) templ.Component {
	heading, action := T("books.new"), "/criar"
	if d.BookID != 0 {
		heading, action = T("books.edit"), "/editar/"+strconv.FormatInt(d.BookID, 10)
	}
	return Page{
		Title:    heading,
		UserName: d.UserName,
		Body:     bookFormBody(d, heading, action),
	}
}

func bookID(b books.Book) string {
	return strconv.FormatInt(b.ID, 10)
}
