package services

import (
	"errors"
	"strings"

	"botdesk/internal/models"
	"botdesk/internal/repository"

	"gorm.io/gorm"
)

type BusinessInfo struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	CatalogText     string `json:"catalog_text"`
	CatalogProducts string `json:"catalog_products"`
	Availability    string `json:"availability"`
	Location        string `json:"location"`
	Contact         string `json:"contact"`
}

type BusinessService interface {
	MyBusiness(userID string) (*models.Business, error)
	SaveInfo(userID string, info BusinessInfo) (*models.Business, error)
}

type businessService struct {
	businessRepo repository.BusinessRepository
}

func NewBusinessService(businessRepo repository.BusinessRepository) BusinessService {
	return &businessService{businessRepo: businessRepo}
}

// MyBusiness returns the caller's oldest business, or nil when there is none.
func (s *businessService) MyBusiness(userID string) (*models.Business, error) {
	business, err := s.businessRepo.GetByOwner(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return business, err
}

// SaveInfo creates the caller's business or updates the existing one.
func (s *businessService) SaveInfo(userID string, info BusinessInfo) (*models.Business, error) {
	required := map[string]string{
		"description":  info.Description,
		"catalog_text": info.CatalogText,
		"availability": info.Availability,
		"location":     info.Location,
		"contact":      info.Contact,
	}
	for _, field := range []string{"description", "catalog_text", "availability", "location", "contact"} {
		if strings.TrimSpace(required[field]) == "" {
			return nil, invalid("%s is required", field)
		}
	}

	business, err := s.MyBusiness(userID)
	if err != nil {
		return nil, err
	}

	isNew := business == nil
	if isNew {
		business = &models.Business{UserID: userID}
	}
	if name := strings.TrimSpace(info.Name); name != "" {
		business.Name = name
	}
	business.Description = info.Description
	business.CatalogText = info.CatalogText
	business.CatalogProducts = info.CatalogProducts
	business.Availability = info.Availability
	business.Location = info.Location
	business.Contact = info.Contact

	if isNew {
		err = s.businessRepo.Create(business)
	} else {
		err = s.businessRepo.Update(business)
	}
	if err != nil {
		return nil, err
	}
	return business, nil
}
