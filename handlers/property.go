package handlers

import (
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/db"
	"github.com/dzoniops/rental-service/services"
)

// GET /api/properties?q=&location=&minPrice=&maxPrice=&amenities=&sort=price
func (s *Server) listProperties(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	filter := db.PropertyFilter{
		Query:       strings.TrimSpace(query.Get("q")),
		Location:    strings.TrimSpace(query.Get("location")),
		Amenities:   services.CleanAmenities(query["amenities"]),
		SortByPrice: query.Get("sort") == "price",
	}
	var err error
	if filter.MinPrice, err = parsePrice(query.Get("minPrice")); err != nil {
		respondError(w, http.StatusBadRequest, "minPrice must be a number")
		return
	}
	if filter.MaxPrice, err = parsePrice(query.Get("maxPrice")); err != nil {
		respondError(w, http.StatusBadRequest, "maxPrice must be a number")
		return
	}

	properties, err := s.properties.List(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch properties")
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

func (s *Server) getProperty(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	property, err := s.properties.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		s.fail(w, r, err, "Failed to fetch property")
		return
	}
	respondJSON(w, http.StatusOK, property)
}

func (s *Server) createProperty(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !s.parseForm(w, r) {
		return
	}
	in, err := propertyForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	images, closeAll, err := formImages(r.MultipartForm, "images")
	defer closeAll()
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid image upload")
		return
	}

	property, err := s.properties.Create(r.Context(), auth.FromContext(r.Context()), in, images)
	if err != nil {
		s.fail(w, r, err, "Failed to create property")
		return
	}
	respondJSON(w, http.StatusCreated, property)
}

func (s *Server) updateProperty(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !s.parseForm(w, r) {
		return
	}
	in, err := propertyForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	images, closeAll, err := formImages(r.MultipartForm, "images")
	defer closeAll()
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid image upload")
		return
	}

	property, err := s.properties.Update(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), in, images)
	if err != nil {
		s.fail(w, r, err, "Failed to update property")
		return
	}
	respondJSON(w, http.StatusOK, property)
}

func (s *Server) deleteProperty(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := s.properties.Delete(r.Context(), auth.FromContext(r.Context()), ps.ByName("id")); err != nil {
		s.fail(w, r, err, "Failed to delete property")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully"})
}

// POST /api/upload
func (s *Server) upload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !s.parseForm(w, r) {
		return
	}
	images, closeAll, err := formImages(r.MultipartForm, "file")
	defer closeAll()
	if err != nil || len(images) == 0 {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	url, err := s.properties.Upload(r.Context(), auth.FromContext(r.Context()), images[0])
	if err != nil {
		s.fail(w, r, err, "File upload failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"fileUrl": url})
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form data")
		return false
	}
	return true
}

type formError string

func (e formError) Error() string { return string(e) }

func propertyForm(r *http.Request) (services.PropertyInput, error) {
	in := services.PropertyInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		OwnerID:     strings.TrimSpace(r.FormValue("ownerId")),
	}
	price, err := parsePrice(r.FormValue("pricePerNight"))
	if err != nil {
		return in, formError("pricePerNight must be a number")
	}
	in.PricePerNight = price
	if values, ok := r.MultipartForm.Value["amenities"]; ok {
		in.Amenities = services.CleanAmenities(values)
	}
	return in, nil
}

func parsePrice(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

// formImages opens every file under field. The returned func closes them.
func formImages(form *multipart.Form, field string) ([]services.ImageUpload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	if form == nil {
		return nil, closeAll, nil
	}
	images := make([]services.ImageUpload, 0, len(form.File[field]))
	for _, header := range form.File[field] {
		f, err := header.Open()
		if err != nil {
			return nil, closeAll, err
		}
		files = append(files, f)
		images = append(images, services.ImageUpload{Filename: header.Filename, Body: f})
	}
	return images, closeAll, nil
}
